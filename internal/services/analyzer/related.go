package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/finsight/internal/interfaces"
)

// maxRelatedQuestions caps the suggested follow-ups per answer
const maxRelatedQuestions = 3

const relatedQuestionsPromptFormat = `Based on this original question: "%s"
Generate %d related but different follow-up questions that users might want to ask next.
%sMake sure related questions are short and concise. Ideally, less than 15 words each.
Return only the questions, one per line. Do not return the number or order of the question.`

// GenerateRelatedQuestions suggests follow-up questions after an answer
// completes. Uses the fast model tier; failures are the caller's to log
// and never fatal.
func GenerateRelatedQuestions(ctx context.Context, gemini interfaces.GeminiClient, question string, financeFocused bool) ([]string, error) {
	focus := ""
	if financeFocused {
		focus = "These questions should be related to either balance sheet, income statement or cash flow statement.\n"
	}
	prompt := fmt.Sprintf(relatedQuestionsPromptFormat, question, maxRelatedQuestions, focus)

	response, err := gemini.GenerateText(ctx, prompt, interfaces.WithLiteModel())
	if err != nil {
		return nil, fmt.Errorf("failed to generate related questions: %w", err)
	}

	var questions []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789. ")
		if line == "" {
			continue
		}
		questions = append(questions, line)
		if len(questions) == maxRelatedQuestions {
			break
		}
	}
	return questions, nil
}
