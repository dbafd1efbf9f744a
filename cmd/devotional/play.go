package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"devotional"
)

const skipCommand = "s"

type terminal struct {
	scanner *bufio.Scanner
}

func (t *terminal) ask(prompt string) string {
	fmt.Print(prompt)
	if !t.scanner.Scan() {
		return skipCommand
	}
	return strings.TrimSpace(t.scanner.Text())
}

func playQuiz(db *devotional.DB, doc *devotional.StudyDocument) {
	fmt.Printf("📖 %s\n", doc.Title)
	if doc.Summary != "" {
		fmt.Printf("%s\n", doc.Summary)
	}
	fmt.Printf("📝 Preguntas: %d (escribe %q para saltar)\n\n", len(doc.Quiz), skipCommand)

	engine := devotional.NewQuizEngine(doc.Quiz)
	term := &terminal{scanner: bufio.NewScanner(os.Stdin)}

	for {
		switch v := engine.Current().(type) {
		case devotional.SessionComplete:
			finish(db, doc, engine, v)
			writeJournal(term, db, doc)
			return
		case devotional.BrokenQuestion:
			fmt.Printf("Pregunta %d/%d no se puede mostrar (%s). Saltando.\n\n", v.Index+1, v.Total, v.Reason)
			engine.Skip()
		case devotional.ActiveQuestion:
			fmt.Printf("Pregunta %d/%d:\n%s\n\n", v.Index+1, v.Total, v.Question.Prompt())
			if !answer(term, engine, v) {
				engine.Skip()
				fmt.Println()
				continue
			}
			result, err := engine.Confirm()
			if err != nil {
				fmt.Printf("No se pudo calificar: %v\n", err)
				engine.Skip()
				continue
			}
			if result.Correct {
				fmt.Println("✅ ¡Correcto!")
			} else {
				fmt.Println("❌ Incorrecto.")
			}
			if result.Explanation != "" {
				fmt.Printf("💡 %s\n", result.Explanation)
			}
			fmt.Println()
			fmt.Println(strings.Repeat("─", 50))
			fmt.Println()
			engine.Advance()
		}
	}
}

// answer fills the engine scratch state from the terminal. It returns false
// when the player skips.
func answer(t *terminal, engine *devotional.QuizEngine, v devotional.ActiveQuestion) bool {
	switch q := v.Question.(type) {
	case *devotional.MultipleChoice:
		printOptions(q.Options)
		for {
			in := t.ask("Tu respuesta (número): ")
			if in == skipCommand {
				return false
			}
			n, err := strconv.Atoi(in)
			if err == nil && engine.Select(n-1) == nil {
				return true
			}
			fmt.Println("Escribe el número de una opción.")
		}
	case *devotional.MultipleSelection:
		printOptions(q.Options)
		for {
			in := t.ask("Tus respuestas (números separados por comas, vacío si ninguna): ")
			if in == skipCommand {
				return false
			}
			if toggleAll(engine, in) {
				return true
			}
			fmt.Println("Escribe números de opciones, por ejemplo 1,3.")
		}
	case *devotional.Matching:
		rights := v.Scratch.Rights
		for i, r := range rights {
			fmt.Printf("  %c) %s\n", 'a'+i, r)
		}
		fmt.Println()
		// a letter reused for another left moves its pair, so loop until every left is paired
		for !engine.CanConfirm() {
			pairing := engine.Current().(devotional.ActiveQuestion).Scratch.Pairing
			for _, p := range q.Pairs {
				if _, ok := pairing[p.Left]; ok {
					continue
				}
				for {
					in := strings.ToLower(t.ask(fmt.Sprintf("%s = ", p.Left)))
					if in == skipCommand {
						return false
					}
					if len(in) == 1 && in[0] >= 'a' && int(in[0]-'a') < len(rights) {
						if err := engine.Pair(p.Left, rights[in[0]-'a']); err == nil {
							break
						}
					}
					fmt.Println("Escribe la letra de una opción.")
				}
			}
			if !engine.CanConfirm() {
				fmt.Println("Cada opción se usa una sola vez; completa las que quedaron libres.")
			}
		}
		return true
	case *devotional.Ordering:
		items := v.Scratch.Items
		printOptions(items)
		for {
			in := t.ask("Orden correcto (números separados por espacios): ")
			if in == skipCommand {
				return false
			}
			if reorder(engine, items, in) {
				return true
			}
			fmt.Printf("Escribe una permutación de 1 a %d.\n", len(items))
		}
	case *devotional.FillInTheBlanks:
		fmt.Println(strings.Join(q.Segments(), "____"))
		fmt.Println()
		for i := range q.BlankAnswers {
			for {
				in := t.ask(fmt.Sprintf("Espacio %d: ", i+1))
				if in == skipCommand {
					return false
				}
				if in != "" && engine.SetBlank(i, in) == nil {
					break
				}
			}
		}
		return true
	case *devotional.OpenEnded:
		for {
			in := t.ask("Tu reflexión: ")
			if in == skipCommand {
				return false
			}
			if engine.SetText(in) == nil && engine.CanConfirm() {
				return true
			}
		}
	}
	return false
}

func printOptions(options []string) {
	for i, o := range options {
		fmt.Printf("  %d) %s\n", i+1, o)
	}
	fmt.Println()
}

func toggleAll(engine *devotional.QuizEngine, in string) bool {
	seen := map[int]bool{}
	var picks []int
	for _, f := range strings.FieldsFunc(in, func(r rune) bool { return r == ',' || r == ' ' }) {
		n, err := strconv.Atoi(f)
		if err != nil {
			return false
		}
		if !seen[n] {
			seen[n] = true
			picks = append(picks, n-1)
		}
	}
	sort.Ints(picks)
	for _, i := range picks {
		if err := engine.Toggle(i); err != nil {
			// undo the partial selection
			for _, j := range picks {
				if j == i {
					break
				}
				engine.Toggle(j)
			}
			return false
		}
	}
	return true
}

// reorder applies a 1-based permutation of the displayed items by moving each
// chosen item into its target position.
func reorder(engine *devotional.QuizEngine, items []string, in string) bool {
	fields := strings.Fields(strings.ReplaceAll(in, ",", " "))
	if len(fields) != len(items) {
		return false
	}
	current := append([]string(nil), items...)
	seen := map[int]bool{}
	for to, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > len(items) || seen[n] {
			return false
		}
		seen[n] = true
		want := items[n-1]
		from := to
		for from < len(current) && current[from] != want {
			from++
		}
		if from == len(current) {
			return false
		}
		if err := engine.MoveItem(from, to); err != nil {
			return false
		}
		item := current[from]
		current = append(current[:from], current[from+1:]...)
		current = append(current[:to], append([]string{item}, current[to:]...)...)
	}
	return true
}

func finish(db *devotional.DB, doc *devotional.StudyDocument, engine *devotional.QuizEngine, done devotional.SessionComplete) {
	fmt.Println("🎉 ¡Cuestionario completado!")
	percentage := 0.0
	if done.Total > 0 {
		percentage = float64(done.Score) / float64(done.Total) * 100
	}
	fmt.Printf("🏆 Puntuación: %d/%d (%.1f%%)\n", done.Score, done.Total, percentage)

	answers := engine.Answers()
	for i, a := range answers {
		fmt.Printf("  %d. %s\n", i+1, a)
	}

	if doc.ID != "" {
		if err := db.SaveQuizResult(&devotional.QuizResult{
			StudyID: doc.ID,
			Score:   done.Score,
			Total:   done.Total,
			Answers: answers,
		}); err != nil {
			log.Printf("Failed to save quiz result: %v", err)
		}
	}
	s, err := db.ApplyQuizCompletion(done.Score)
	if err != nil {
		log.Printf("Failed to update stats: %v", err)
		return
	}
	printStats(s)
}

// writeJournal asks each reflection prompt of a stored study and saves the
// non-empty answers.
func writeJournal(t *terminal, db *devotional.DB, doc *devotional.StudyDocument) {
	if doc.ID == "" || len(doc.ReflectionPrompts) == 0 {
		return
	}
	fmt.Printf("\n🖊️ Diario de reflexión (Enter para omitir)\n\n")
	for i, prompt := range doc.ReflectionPrompts {
		in := t.ask(prompt + "\n> ")
		if in == "" || in == skipCommand {
			continue
		}
		s, err := db.SaveJournalEntry(&devotional.JournalEntry{StudyID: doc.ID, PromptIndex: i, Text: in})
		if err != nil {
			log.Printf("Failed to save journal entry: %v", err)
			continue
		}
		fmt.Printf("💎 Esmeraldas: %d\n", s.Emeralds)
	}
}
