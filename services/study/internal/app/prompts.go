package app

import (
	"fmt"
	"regexp"
	"strings"

	"mentorhub/pkg/domain"
)

const (
	quizSystemPrompt        = "You are an expert educational content creator. Generate engaging multiple-choice quizzes based on book content."
	flashcardSystemPrompt   = "You are an expert at creating effective study flashcards for learning and retention."
	mindMapSystemPrompt     = "You are an expert at creating structured mind maps for visualizing knowledge."
	summarySystemPrompt     = "You are an expert at creating comprehensive but concise summaries."
	studyGuideSystemPrompt  = "You are an expert at creating comprehensive study guides."
	audioScriptSystemPrompt = "You are a professional audiobook narrator and educational content creator."
)

const quizPromptFormat = `Create a 10-question multiple-choice quiz based on %s. Return ONLY valid JSON in this exact format:
{
  "questions": [
    {
      "question": "Question text here?",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correctAnswer": 0,
      "explanation": "Brief explanation of the correct answer"
    }
  ]
}

%s`

const flashcardPromptFormat = `Create 15 flashcard pairs based on key concepts from %s. Return ONLY valid JSON in this exact format:
{
  "cards": [
    {
      "front": "Question or concept",
      "back": "Answer or explanation"
    }
  ]
}

%s`

const mindMapPromptFormat = `Create a hierarchical mind map structure for %s's key concepts. Return ONLY valid JSON in this exact format:
{
  "central": "Main topic",
  "branches": [
    {
      "name": "Branch name",
      "children": [
        {
          "name": "Sub-concept",
          "children": []
        }
      ]
    }
  ]
}

%s`

const summaryPromptFormat = `Create a detailed summary of %s with key takeaways. Return ONLY valid JSON in this exact format:
{
  "overview": "Brief 2-3 sentence overview",
  "keyPoints": [
    "Key point 1",
    "Key point 2"
  ],
  "mainThemes": [
    {
      "theme": "Theme name",
      "description": "Theme description"
    }
  ],
  "conclusion": "Final thoughts and practical applications"
}

%s`

const studyGuidePromptFormat = `Create a detailed study guide for %s. Return ONLY valid JSON in this exact format:
{
  "sections": [
    {
      "title": "Section title",
      "keyTerms": ["term1", "term2"],
      "concepts": ["concept1", "concept2"],
      "questions": ["question1", "question2"]
    }
  ],
  "practiceExercises": [
    "Exercise 1",
    "Exercise 2"
  ]
}

%s`

const audioScriptPromptFormat = `Create an engaging audio script for an overview of %s. The script should:
- Start with a warm introduction (NO stage directions like "[Intro music]" or "[Sound of pages]")
- Cover the main themes and key takeaways
- Be written in a conversational, engaging tone suitable for text-to-speech
- Be about 3-5 minutes when read aloud
- ONLY include words that should be spoken - NO sound effects, NO music cues, NO stage directions
- End with an inspiring conclusion

Return ONLY valid JSON in this exact format:
{
  "script": "Full narration script here with ONLY speakable text..."
}

%s`

func buildPrompts(matType domain.MaterialType, book domain.Book, chapterName, bookContent string) (systemPrompt, userPrompt string) {
	scope := "the book"
	if chapterName != "" {
		scope = fmt.Sprintf("chapter %q", chapterName)
	}
	footer := bookFooter(book, chapterName, bookContent, matType == domain.MaterialAudioScript)

	switch matType {
	case domain.MaterialQuiz:
		return quizSystemPrompt, fmt.Sprintf(quizPromptFormat, scope, footer)
	case domain.MaterialFlashcard:
		return flashcardSystemPrompt, fmt.Sprintf(flashcardPromptFormat, scope, footer)
	case domain.MaterialMindMap:
		return mindMapSystemPrompt, fmt.Sprintf(mindMapPromptFormat, scope, footer)
	case domain.MaterialSummary:
		return summarySystemPrompt, fmt.Sprintf(summaryPromptFormat, scope, footer)
	case domain.MaterialStudyGuide:
		return studyGuideSystemPrompt, fmt.Sprintf(studyGuidePromptFormat, scope, footer)
	case domain.MaterialAudioScript:
		return audioScriptSystemPrompt, fmt.Sprintf(audioScriptPromptFormat, scope, footer)
	}
	return "", ""
}

func bookFooter(book domain.Book, chapterName, bookContent string, withDescription bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Book: %s by %s", book.Title, book.Author)
	if chapterName != "" {
		fmt.Fprintf(&b, "\nChapter: %s", chapterName)
	}
	if withDescription {
		fmt.Fprintf(&b, "\nDescription: %s", book.Description)
	}
	fmt.Fprintf(&b, "\nContent: %s", bookContent)
	return b.String()
}

// Fence patterns tried in order, most specific first. Models wrap JSON in
// markdown code blocks in a few different shapes.
var fencePatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n```"),
	regexp.MustCompile("(?s)```json\\s*(.*?)```"),
	regexp.MustCompile("(?s)```\\s*\\n(.*?)\\n```"),
	regexp.MustCompile("(?s)```\\s*(.*?)```"),
}

func stripCodeFence(raw string) string {
	for _, pattern := range fencePatterns {
		if m := pattern.FindStringSubmatch(raw); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return strings.TrimSpace(raw)
}
