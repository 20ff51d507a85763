package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xhad/tutor/internal/models"
)

const quizPromptTemplate = `You are an AI tutor creating a quiz from the document "%s".
Generate exactly %d multiple-choice questions at %s difficulty based only on the content below.

Document Content:
%s

Return ONLY a JSON object with this exact structure, no other text:
{
  "questions": [
    {
      "question": "the question text",
      "options": ["option A", "option B", "option C", "option D"],
      "correct_answer": 0,
      "explanation": "why this option is correct"
    }
  ]
}

Rules:
- Each question must have exactly 4 options
- "correct_answer" is the zero-based index of the correct option
- Every question must be answerable from the document content above`

// rawMCQ uses pointer fields so a missing key is distinguishable from
// a zero value during validation.
type rawMCQ struct {
	Question      *string  `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correct_answer"`
	Explanation   *string  `json:"explanation"`
}

type quizPayload struct {
	Questions []rawMCQ `json:"questions"`
}

// GenerateQuiz builds count MCQs from a broad sample of the document's
// chunks. Model failures never propagate; the caller always receives a
// full set, falling back to placeholders when generation fails.
func (s *Service) GenerateQuiz(ctx context.Context, userID, documentID string, count int, difficulty string) ([]models.MCQ, error) {
	doc, err := s.authorizedDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	if count < 1 {
		count = 5
	}
	if difficulty == "" {
		difficulty = "medium"
	}

	sample, err := s.deps.Index.Sample(ctx, doc.Namespace, s.config.QuizSampleSize)
	if err != nil {
		s.log.Error("quiz sampling failed", "document_id", doc.ID, "error", err)
		return fallbackMCQs(count, difficulty, doc.Title), nil
	}

	var cb strings.Builder
	for _, m := range sample {
		text := strings.TrimSpace(m.Chunk.Text)
		if text == "" {
			continue
		}
		if cb.Len() > 0 {
			cb.WriteString("\n\n")
		}
		cb.WriteString(text)
		if cb.Len() >= s.config.QuizContextMax {
			break
		}
	}
	contextText := truncateUTF8(cb.String(), s.config.QuizContextMax)
	if contextText == "" {
		s.log.Warn("no indexed content for quiz", "document_id", doc.ID)
		return fallbackMCQs(count, difficulty, doc.Title), nil
	}

	prompt := fmt.Sprintf(quizPromptTemplate, doc.Title, count, difficulty, contextText)

	reply, err := s.deps.Model.Complete(ctx, prompt)
	if err != nil {
		s.log.Error("quiz completion failed", "document_id", doc.ID, "error", err)
		return fallbackMCQs(count, difficulty, doc.Title), nil
	}

	mcqs := parseMCQs(reply, count)
	if len(mcqs) == 0 {
		s.log.Warn("model returned no valid questions", "document_id", doc.ID)
		return fallbackMCQs(count, difficulty, doc.Title), nil
	}

	s.log.Info("quiz generated", "document_id", doc.ID, "questions", len(mcqs))
	return mcqs, nil
}

// parseMCQs treats the model output as untrusted: strip code fences,
// parse strictly, drop invalid items, renumber survivors from 1.
func parseMCQs(reply string, limit int) []models.MCQ {
	var payload quizPayload
	if err := json.Unmarshal([]byte(stripCodeFences(reply)), &payload); err != nil {
		return nil
	}

	mcqs := make([]models.MCQ, 0, len(payload.Questions))
	for _, raw := range payload.Questions {
		if len(mcqs) == limit {
			break
		}
		if !validMCQ(raw) {
			continue
		}
		mcqs = append(mcqs, models.MCQ{
			ID:            len(mcqs) + 1,
			Question:      strings.TrimSpace(*raw.Question),
			Options:       raw.Options,
			CorrectAnswer: *raw.CorrectAnswer,
			Explanation:   strings.TrimSpace(*raw.Explanation),
		})
	}
	return mcqs
}

func validMCQ(raw rawMCQ) bool {
	if raw.Question == nil || strings.TrimSpace(*raw.Question) == "" {
		return false
	}
	if raw.Explanation == nil {
		return false
	}
	if len(raw.Options) != 4 {
		return false
	}
	if raw.CorrectAnswer == nil || *raw.CorrectAnswer < 0 || *raw.CorrectAnswer > 3 {
		return false
	}
	return true
}

// truncateUTF8 caps s at max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// fallbackMCQs is the deterministic placeholder set used whenever
// generation cannot produce valid questions.
func fallbackMCQs(count int, difficulty, title string) []models.MCQ {
	mcqs := make([]models.MCQ, 0, count)
	for i := 1; i <= count; i++ {
		mcqs = append(mcqs, models.MCQ{
			ID:            i,
			Question:      fmt.Sprintf("Placeholder question %d (%s): quiz generation for '%s' is temporarily unavailable. Which option is marked correct?", i, difficulty, title),
			Options:       []string{"Option A", "Option B", "Option C", "Option D"},
			CorrectAnswer: 0,
			Explanation:   "This is a placeholder question; re-generate the quiz once the document has been processed.",
		})
	}
	return mcqs
}
