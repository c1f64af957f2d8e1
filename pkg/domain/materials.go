package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MaterialType enumerates the study-material variants a book can produce.
type MaterialType string

const (
	MaterialQuiz        MaterialType = "quiz"
	MaterialFlashcard   MaterialType = "flashcard"
	MaterialMindMap     MaterialType = "mindmap"
	MaterialSummary     MaterialType = "summary"
	MaterialStudyGuide  MaterialType = "study_guide"
	MaterialAudioScript MaterialType = "audio_script"
)

// ParseMaterialType validates a request-supplied material type string.
func ParseMaterialType(raw string) (MaterialType, bool) {
	switch MaterialType(strings.ToLower(strings.TrimSpace(raw))) {
	case MaterialQuiz:
		return MaterialQuiz, true
	case MaterialFlashcard:
		return MaterialFlashcard, true
	case MaterialMindMap:
		return MaterialMindMap, true
	case MaterialSummary:
		return MaterialSummary, true
	case MaterialStudyGuide:
		return MaterialStudyGuide, true
	case MaterialAudioScript:
		return MaterialAudioScript, true
	default:
		return "", false
	}
}

// MaterialTitle renders the cache-key title for a (type, chapter) pair:
// "<materialType>: <chapterName>" when a chapter is given, "<materialType>"
// for the whole book.
func MaterialTitle(matType MaterialType, chapterName string) string {
	chapterName = strings.TrimSpace(chapterName)
	if chapterName == "" {
		return string(matType)
	}
	return fmt.Sprintf("%s: %s", matType, chapterName)
}

// StudyMaterial is a cached generated artifact keyed by
// (book, material type, title). At most one row exists per key.
type StudyMaterial struct {
	ID           string          `json:"id"`
	BookID       string          `json:"book_id"`
	MaterialType MaterialType    `json:"material_type"`
	Title        string          `json:"title"`
	Content      MaterialContent `json:"content"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// MaterialContent is the tagged union of generated payloads. Exactly one
// concrete variant exists per MaterialType; each validates its own schema.
type MaterialContent interface {
	Type() MaterialType
	Validate() error
}

type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type QuizContent struct {
	Questions []QuizQuestion `json:"questions"`
}

func (QuizContent) Type() MaterialType { return MaterialQuiz }

func (c QuizContent) Validate() error {
	if len(c.Questions) == 0 {
		return fmt.Errorf("quiz has no questions")
	}
	for i, q := range c.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("question %d is empty", i)
		}
		if len(q.Options) != 4 {
			return fmt.Errorf("question %d has %d options, want 4", i, len(q.Options))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("question %d correctAnswer %d out of range", i, q.CorrectAnswer)
		}
	}
	return nil
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type FlashcardContent struct {
	Cards []Flashcard `json:"cards"`
}

func (FlashcardContent) Type() MaterialType { return MaterialFlashcard }

func (c FlashcardContent) Validate() error {
	if len(c.Cards) == 0 {
		return fmt.Errorf("flashcard set has no cards")
	}
	for i, card := range c.Cards {
		if strings.TrimSpace(card.Front) == "" || strings.TrimSpace(card.Back) == "" {
			return fmt.Errorf("card %d has an empty side", i)
		}
	}
	return nil
}

type MindMapNode struct {
	Name     string        `json:"name"`
	Children []MindMapNode `json:"children"`
}

type MindMapContent struct {
	Central  string        `json:"central"`
	Branches []MindMapNode `json:"branches"`
}

func (MindMapContent) Type() MaterialType { return MaterialMindMap }

func (c MindMapContent) Validate() error {
	if strings.TrimSpace(c.Central) == "" {
		return fmt.Errorf("mind map has no central node")
	}
	if len(c.Branches) == 0 {
		return fmt.Errorf("mind map has no branches")
	}
	var check func(nodes []MindMapNode) error
	check = func(nodes []MindMapNode) error {
		for _, n := range nodes {
			if strings.TrimSpace(n.Name) == "" {
				return fmt.Errorf("mind map node has no name")
			}
			if err := check(n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return check(c.Branches)
}

type SummaryTheme struct {
	Theme       string `json:"theme"`
	Description string `json:"description"`
}

type SummaryContent struct {
	Overview   string         `json:"overview"`
	KeyPoints  []string       `json:"keyPoints"`
	MainThemes []SummaryTheme `json:"mainThemes"`
	Conclusion string         `json:"conclusion"`
}

func (SummaryContent) Type() MaterialType { return MaterialSummary }

func (c SummaryContent) Validate() error {
	if strings.TrimSpace(c.Overview) == "" {
		return fmt.Errorf("summary has no overview")
	}
	if len(c.KeyPoints) == 0 {
		return fmt.Errorf("summary has no key points")
	}
	return nil
}

type StudyGuideSection struct {
	Title     string   `json:"title"`
	KeyTerms  []string `json:"keyTerms"`
	Concepts  []string `json:"concepts"`
	Questions []string `json:"questions"`
}

type StudyGuideContent struct {
	Sections          []StudyGuideSection `json:"sections"`
	PracticeExercises []string            `json:"practiceExercises"`
}

func (StudyGuideContent) Type() MaterialType { return MaterialStudyGuide }

func (c StudyGuideContent) Validate() error {
	if len(c.Sections) == 0 {
		return fmt.Errorf("study guide has no sections")
	}
	for i, s := range c.Sections {
		if strings.TrimSpace(s.Title) == "" {
			return fmt.Errorf("section %d has no title", i)
		}
	}
	return nil
}

type AudioScriptContent struct {
	Script string `json:"script"`
}

func (AudioScriptContent) Type() MaterialType { return MaterialAudioScript }

func (c AudioScriptContent) Validate() error {
	if strings.TrimSpace(c.Script) == "" {
		return fmt.Errorf("audio script is empty")
	}
	return nil
}

// ParseMaterialContent decodes raw JSON into the variant for matType and
// validates it. The input must already be bare JSON (code fences stripped).
func ParseMaterialContent(matType MaterialType, raw []byte) (MaterialContent, error) {
	var content MaterialContent
	switch matType {
	case MaterialQuiz:
		content = &QuizContent{}
	case MaterialFlashcard:
		content = &FlashcardContent{}
	case MaterialMindMap:
		content = &MindMapContent{}
	case MaterialSummary:
		content = &SummaryContent{}
	case MaterialStudyGuide:
		content = &StudyGuideContent{}
	case MaterialAudioScript:
		content = &AudioScriptContent{}
	default:
		return nil, fmt.Errorf("unknown material type: %s", matType)
	}
	if err := json.Unmarshal(raw, content); err != nil {
		return nil, fmt.Errorf("decode %s content: %w", matType, err)
	}
	if err := content.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s content: %w", matType, err)
	}
	return deref(content), nil
}

func deref(content MaterialContent) MaterialContent {
	switch v := content.(type) {
	case *QuizContent:
		return *v
	case *FlashcardContent:
		return *v
	case *MindMapContent:
		return *v
	case *SummaryContent:
		return *v
	case *StudyGuideContent:
		return *v
	case *AudioScriptContent:
		return *v
	default:
		return content
	}
}
