package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"devotional"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
)

const (
	sessionName  = "quiz-session"
	sessionIDKey = "session_id"
	// maxLiveSessions bounds the in-memory quiz sessions.
	maxLiveSessions = 1000
)

// Server exposes studies, quiz sessions, reading plans and stats as a JSON API.
type Server struct {
	generator *devotional.StudyGenerator
	db        *devotional.DB
	store     sessions.Store
	pool      *devotional.SessionPool
	now       func() time.Time
}

// NewServer creates a server over a generator and database
func NewServer(generator *devotional.StudyGenerator, db *devotional.DB, store sessions.Store) *Server {
	return &Server{
		generator: generator,
		db:        db,
		store:     store,
		pool:      devotional.NewSessionPool(maxLiveSessions),
		now:       time.Now,
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/studies", s.handleGenerate).Methods("POST")
	api.HandleFunc("/studies/{id}", s.handleGetStudy).Methods("GET")
	api.HandleFunc("/studies/{id}/results", s.handleStudyResults).Methods("GET")
	api.HandleFunc("/studies/{id}/quiz", s.handleStartQuiz).Methods("POST")
	api.HandleFunc("/studies/{id}/journal", s.handleGetJournal).Methods("GET")
	api.HandleFunc("/studies/{id}/journal/{index:[0-9]+}", s.handleSaveJournal).Methods("PUT")
	api.HandleFunc("/history", s.handleHistory).Methods("GET")

	api.HandleFunc("/quiz", s.handleCurrent).Methods("GET")
	api.HandleFunc("/quiz/answer", s.handleAnswer).Methods("POST")
	api.HandleFunc("/quiz/advance", s.handleAdvance).Methods("POST")
	api.HandleFunc("/quiz/skip", s.handleSkip).Methods("POST")
	api.HandleFunc("/quiz/restart", s.handleRestart).Methods("POST")
	api.HandleFunc("/quiz/answers", s.handleAnswers).Methods("GET")

	api.HandleFunc("/plans", s.handleGeneratePlan).Methods("POST")
	api.HandleFunc("/plans", s.handleListPlans).Methods("GET")
	api.HandleFunc("/plans/{id}", s.handleGetPlan).Methods("GET")
	api.HandleFunc("/plans/{id}", s.handleDeletePlan).Methods("DELETE")

	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/stats/protector", s.handleBuyProtector).Methods("POST")

	return r
}

type generateRequest struct {
	Passage      string `json:"passage"`
	NumQuestions int    `json:"num_questions"`
}

type generateResponse struct {
	Study  *devotional.StudyDocument  `json:"study"`
	Report *devotional.SanitizeReport `json:"report"`
	Stats  devotional.UserStats       `json:"stats"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, report, err := s.generator.Generate(r.Context(), devotional.GenerationRequest{
		Passage:      req.Passage,
		NumQuestions: req.NumQuestions,
	})
	if err != nil {
		writeGenerationError(w, err)
		return
	}

	stats, err := s.db.ApplyStudyCompletion(s.now())
	if err != nil {
		devotional.Logger().Warnw("failed to apply study reward", "error", err)
	}
	writeJSON(w, http.StatusCreated, generateResponse{Study: doc, Report: report, Stats: stats})
}

func (s *Server) handleGetStudy(w http.ResponseWriter, r *http.Request) {
	doc, err := s.db.GetStudy(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleStudyResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.db.GetQuizResults(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	items, err := s.db.RecentHistory()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	entries, err := s.db.GetJournal(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type journalRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSaveJournal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid prompt index")
		return
	}
	var req journalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry := &devotional.JournalEntry{StudyID: vars["id"], PromptIndex: index, Text: req.Text}
	stats, err := s.db.SaveJournalEntry(entry)
	if errors.Is(err, devotional.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, journalResponse{Entry: entry, Stats: stats})
}

type journalResponse struct {
	Entry *devotional.JournalEntry `json:"entry"`
	Stats devotional.UserStats     `json:"stats"`
}

type planRequest struct {
	Topic    string `json:"topic"`
	Duration string `json:"duration"`
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	plan, err := s.generator.GenerateReadingPlan(r.Context(), req.Topic, devotional.PlanDuration(req.Duration))
	if err != nil {
		writeGenerationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.db.ListReadingPlans()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.db.GetReadingPlan(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteReadingPlan(mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.CheckStreak(s.now())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleBuyProtector(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.BuyProtector()
	if errors.Is(err, devotional.ErrNotEnoughEmeralds) {
		writeError(w, http.StatusPaymentRequired, err.Error())
		return
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeGenerationError(w http.ResponseWriter, err error) {
	var pe *devotional.ProviderError
	switch {
	case errors.Is(err, devotional.ErrEmptyPassage), errors.Is(err, devotional.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, devotional.ErrMalformedResponse):
		writeError(w, http.StatusBadGateway, "the provider returned text that could not be repaired")
	case errors.As(err, &pe) && pe.Kind == devotional.ProviderQuota:
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &pe):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		devotional.Logger().Errorw("generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "generation failed")
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, devotional.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	devotional.Logger().Errorw("database error", "error", err)
	writeError(w, http.StatusInternalServerError, "database error")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		devotional.Logger().Warnw("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
