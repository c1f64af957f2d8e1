package app

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"mentorhub/internal/util"
	"mentorhub/pkg/domain"
)

const (
	defaultChunkRunes = 1000
	maxChapterLabel   = 200
)

// A paragraph shorter than this matching the heading pattern starts a new
// chapter; longer matches are treated as body text.
const maxHeadingRunes = 120

var (
	chapterHeadingRE = regexp.MustCompile(`(?i)^(chapter|part)\s+(\d+|[ivxlcm]+)\b`)
	sentenceSplitRE  = regexp.MustCompile(`(?s)([^.!?]*[.!?]+)\s*`)
)

// Chunker splits normalized book text into retrieval units. Chunks
// accumulate whole paragraphs up to a rune budget; a paragraph that alone
// exceeds the budget is split at sentence boundaries. Chapter headings
// start a new chunk and label every chunk until the next heading.
//
// Normalization is deterministic: whitespace inside a paragraph collapses
// to single spaces, blank lines separate paragraphs, paragraphs within a
// chunk are joined by "\n\n". Joining all chunk contents with "\n\n"
// reproduces the normalized input exactly, except when an oversized
// paragraph was sentence-split, in which case the join is equal up to
// whitespace.
type Chunker struct {
	maxRunes int
}

func NewChunker(maxRunes int) *Chunker {
	if maxRunes <= 0 {
		maxRunes = defaultChunkRunes
	}
	return &Chunker{maxRunes: maxRunes}
}

// ChunkText chunks raw text with no page information.
func (c *Chunker) ChunkText(bookID, text string) ([]domain.Chunk, error) {
	return c.chunkPages(bookID, []page{{text: text}})
}

func (c *Chunker) chunkPages(bookID string, pages []page) ([]domain.Chunk, error) {
	type paragraph struct {
		text string
		page int
	}
	var paras []paragraph
	for _, pg := range pages {
		for _, raw := range splitParagraphs(pg.text) {
			norm := normalizeParagraph(raw)
			if norm == "" {
				continue
			}
			for _, piece := range c.splitOversized(norm) {
				paras = append(paras, paragraph{text: piece, page: pg.number})
			}
		}
	}
	if len(paras) == 0 {
		return nil, ErrEmptyText
	}

	var (
		chunks       []domain.Chunk
		buf          []string
		bufRunes     int
		chapter      string
		chunkChapter string
		chunkPage    int
	)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		chunks = append(chunks, domain.Chunk{
			ID:          util.NewID(),
			BookID:      bookID,
			Index:       len(chunks),
			Content:     strings.Join(buf, "\n\n"),
			ChapterName: chunkChapter,
			PageNumber:  chunkPage,
		})
		buf = nil
		bufRunes = 0
	}
	for _, para := range paras {
		if isChapterHeading(para.text) {
			flush()
			chapter = chapterLabel(para.text)
		}
		n := utf8.RuneCountInString(para.text)
		if bufRunes > 0 && bufRunes+2+n > c.maxRunes {
			flush()
		}
		if len(buf) == 0 {
			chunkChapter = chapter
			chunkPage = para.page
		} else {
			bufRunes += 2
		}
		buf = append(buf, para.text)
		bufRunes += n
	}
	flush()
	return chunks, nil
}

// splitOversized breaks a paragraph exceeding the budget at sentence
// boundaries, hard-splitting any single sentence that is still too long.
func (c *Chunker) splitOversized(text string) []string {
	if utf8.RuneCountInString(text) <= c.maxRunes {
		return []string{text}
	}
	var sentences []string
	consumed := 0
	for _, m := range sentenceSplitRE.FindAllStringSubmatchIndex(text, -1) {
		sentences = append(sentences, strings.TrimSpace(text[m[2]:m[3]]))
		consumed = m[1]
	}
	if rest := strings.TrimSpace(text[consumed:]); rest != "" {
		sentences = append(sentences, rest)
	}

	var pieces []string
	var buf []string
	bufRunes := 0
	flush := func() {
		if len(buf) > 0 {
			pieces = append(pieces, strings.Join(buf, " "))
			buf = nil
			bufRunes = 0
		}
	}
	for _, sentence := range sentences {
		n := utf8.RuneCountInString(sentence)
		if n > c.maxRunes {
			flush()
			pieces = append(pieces, hardSplit(sentence, c.maxRunes)...)
			continue
		}
		if bufRunes > 0 && bufRunes+1+n > c.maxRunes {
			flush()
		}
		if len(buf) > 0 {
			bufRunes++
		}
		buf = append(buf, sentence)
		bufRunes += n
	}
	flush()
	return pieces
}

func hardSplit(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		part := strings.TrimSpace(string(runes[start:end]))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var paras []string
	var buf strings.Builder
	blank := true
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if !blank {
				paras = append(paras, buf.String())
				buf.Reset()
				blank = true
			}
			continue
		}
		if !blank {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
		blank = false
	}
	if !blank {
		paras = append(paras, buf.String())
	}
	return paras
}

func normalizeParagraph(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ToValidUTF8(text, "")
	return strings.Join(strings.Fields(text), " ")
}

func isChapterHeading(para string) bool {
	return utf8.RuneCountInString(para) <= maxHeadingRunes && chapterHeadingRE.MatchString(para)
}

func chapterLabel(heading string) string {
	runes := []rune(heading)
	if len(runes) > maxChapterLabel {
		return string(runes[:maxChapterLabel])
	}
	return heading
}
