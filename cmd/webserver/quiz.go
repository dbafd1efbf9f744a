package main

import (
	"errors"
	"io"
	"net/http"

	"devotional"

	"github.com/gorilla/mux"
)

type questionView struct {
	Type     devotional.QuestionType `json:"type"`
	Prompt   string                  `json:"question"`
	Options  []string                `json:"options,omitempty"`
	Lefts    []string                `json:"lefts,omitempty"`
	Rights   []string                `json:"rights,omitempty"`
	Items    []string                `json:"items,omitempty"`
	Segments []string                `json:"segments,omitempty"`
}

type viewResponse struct {
	State     string             `json:"state"` // active, broken or complete
	SessionID string             `json:"session_id"`
	Index     int                `json:"index"`
	Total     int                `json:"total"`
	Score     int                `json:"score"`
	Question  *questionView      `json:"question,omitempty"`
	Answered  bool               `json:"answered,omitempty"`
	Result    *devotional.Result `json:"result,omitempty"`
	Reason    string             `json:"reason,omitempty"`
}

// renderView builds the response for a view without exposing correct answers.
func renderView(sess *devotional.Session, view devotional.View) viewResponse {
	resp := viewResponse{SessionID: sess.ID, Score: sess.Engine.Score()}
	switch v := view.(type) {
	case devotional.SessionComplete:
		resp.State = "complete"
		resp.Index, resp.Total, resp.Score = v.Total, v.Total, v.Score
	case devotional.BrokenQuestion:
		resp.State = "broken"
		resp.Index, resp.Total, resp.Reason = v.Index, v.Total, v.Reason
	case devotional.ActiveQuestion:
		resp.State = "active"
		resp.Index, resp.Total = v.Index, v.Total
		resp.Answered, resp.Result = v.Answered, v.Result
		qv := &questionView{Type: v.Question.Type(), Prompt: v.Question.Prompt()}
		switch q := v.Question.(type) {
		case *devotional.MultipleChoice:
			qv.Options = q.Options
		case *devotional.MultipleSelection:
			qv.Options = q.Options
		case *devotional.Matching:
			for _, p := range q.Pairs {
				qv.Lefts = append(qv.Lefts, p.Left)
			}
			qv.Rights = v.Scratch.Rights
		case *devotional.Ordering:
			qv.Items = v.Scratch.Items
		case *devotional.FillInTheBlanks:
			qv.Segments = q.Segments()
		}
		resp.Question = qv
	}
	return resp
}

// session returns the quiz session bound to the request cookie.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*devotional.Session, bool) {
	cookie, _ := s.store.Get(r, sessionName)
	id, _ := cookie.Values[sessionIDKey].(string)
	sess, ok := s.pool.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no active quiz; start one from a study")
		return nil, false
	}
	return sess, true
}

func (s *Server) handleStartQuiz(w http.ResponseWriter, r *http.Request) {
	doc, err := s.db.GetStudy(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	sess := s.pool.Start(doc)

	cookie, _ := s.store.Get(r, sessionName)
	cookie.Values[sessionIDKey] = sess.ID
	if err := cookie.Save(r, w); err != nil {
		devotional.Logger().Warnw("failed to save session cookie", "error", err)
	}
	devotional.VerboseLog("quiz started", "session", sess.ID, "study", doc.ID, "questions", len(doc.Quiz))
	writeJSON(w, http.StatusCreated, renderView(sess, sess.Engine.Current()))
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, renderView(sess, sess.Engine.Current()))
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	active, ok := sess.Engine.Current().(devotional.ActiveQuestion)
	if !ok {
		writeError(w, http.StatusConflict, "the current question cannot be answered")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	answer, err := devotional.ParseAnswer(active.Question.Type(), body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := sess.Engine.Submit(answer); err != nil {
		switch {
		case errors.Is(err, devotional.ErrAnswerMismatch):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, devotional.ErrSessionComplete), errors.Is(err, devotional.ErrBrokenQuestion):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, renderView(sess, sess.Engine.Current()))
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Engine.Advance()
	s.respondAfterMove(w, sess)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Engine.Skip()
	s.respondAfterMove(w, sess)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Engine.Restart()
	s.pool.Unmark(sess.ID)
	writeJSON(w, http.StatusOK, renderView(sess, sess.Engine.Current()))
}

func (s *Server) handleAnswers(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID,
		"answers":    sess.Engine.Answers(),
	})
}

// respondAfterMove records the result and reward the first time a session completes.
func (s *Server) respondAfterMove(w http.ResponseWriter, sess *devotional.Session) {
	view := sess.Engine.Current()
	if done, ok := view.(devotional.SessionComplete); ok && s.pool.MarkSaved(sess.ID) {
		if err := s.db.SaveQuizResult(&devotional.QuizResult{
			StudyID: sess.StudyID,
			Score:   done.Score,
			Total:   done.Total,
			Answers: sess.Engine.Answers(),
		}); err != nil {
			devotional.Logger().Errorw("failed to save quiz result", "session", sess.ID, "error", err)
		}
		if _, err := s.db.ApplyQuizCompletion(done.Score); err != nil {
			devotional.Logger().Errorw("failed to apply quiz reward", "session", sess.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, renderView(sess, view))
}
