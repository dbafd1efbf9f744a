package main

import (
	"bufio"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"devotional"
)

func scripted(lines ...string) *terminal {
	return &terminal{scanner: bufio.NewScanner(strings.NewReader(strings.Join(lines, "\n") + "\n"))}
}

func letterOf(rights []string, value string) string {
	return string(rune('a' + slices.Index(rights, value)))
}

func TestAnswerMatchingRepromptsMovedPair(t *testing.T) {
	m := &devotional.Matching{Pairs: []devotional.Pair{{Left: "Moisés", Right: "ley"}, {Left: "David", Right: "salmos"}}}
	engine := devotional.NewQuizEngine([]devotional.Question{m}, devotional.WithRand(rand.New(rand.NewSource(4))))
	view := engine.Current().(devotional.ActiveQuestion)
	ley := letterOf(view.Scratch.Rights, "ley")
	salmos := letterOf(view.Scratch.Rights, "salmos")

	// David takes Moisés' letter, so Moisés is asked again.
	if !answer(scripted(ley, ley, salmos), engine, view) {
		t.Fatal("answer() = false, want true")
	}
	if !engine.CanConfirm() {
		t.Fatal("Expected a confirmable pairing after the re-prompt")
	}
	result, err := engine.Confirm()
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if result.Correct {
		t.Errorf("Expected the swapped pairing to be graded incorrect")
	}
}

func TestAnswerMatchingSkipDuringReprompt(t *testing.T) {
	m := &devotional.Matching{Pairs: []devotional.Pair{{Left: "Pedro", Right: "pescador"}, {Left: "Mateo", Right: "publicano"}}}
	engine := devotional.NewQuizEngine([]devotional.Question{m}, devotional.WithRand(rand.New(rand.NewSource(1))))
	view := engine.Current().(devotional.ActiveQuestion)
	letter := letterOf(view.Scratch.Rights, "pescador")

	if answer(scripted(letter, letter, skipCommand), engine, view) {
		t.Errorf("answer() = true, want false after skip")
	}
	if engine.CanConfirm() {
		t.Errorf("Expected an incomplete pairing after skip")
	}
}

func TestAnswerMatchingInOrder(t *testing.T) {
	m := &devotional.Matching{Pairs: []devotional.Pair{{Left: "Pedro", Right: "pescador"}, {Left: "Mateo", Right: "publicano"}}}
	engine := devotional.NewQuizEngine([]devotional.Question{m}, devotional.WithRand(rand.New(rand.NewSource(3))))
	view := engine.Current().(devotional.ActiveQuestion)
	in := scripted("z", letterOf(view.Scratch.Rights, "pescador"), letterOf(view.Scratch.Rights, "publicano"))

	if !answer(in, engine, view) {
		t.Fatal("answer() = false, want true")
	}
	result, err := engine.Confirm()
	if err != nil || !result.Correct {
		t.Errorf("Confirm() = %+v, %v; want correct", result, err)
	}
}
