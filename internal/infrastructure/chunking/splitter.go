package chunking

import "strings"

// Splitter packs paragraphs into chunks of at most ChunkSize runes. A
// paragraph longer than ChunkSize is cut at word boundaries.
type Splitter struct {
	ChunkSize int
}

func NewSplitter(chunkSize int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	return &Splitter{ChunkSize: chunkSize}
}

func (s *Splitter) Split(text string) []string {
	var out []string
	var current []string
	size := 0

	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, "\n\n"))
			current = current[:0]
			size = 0
		}
	}

	for _, para := range paragraphs(text) {
		n := len([]rune(para))
		if n > s.ChunkSize {
			flush()
			out = append(out, s.cutWords(para)...)
			continue
		}
		if size > 0 && size+2+n > s.ChunkSize {
			flush()
		}
		if size > 0 {
			size += 2
		}
		current = append(current, para)
		size += n
	}
	flush()
	return out
}

// paragraphs drops markdown heading lines and collapses whitespace inside each
// blank-line separated block.
func paragraphs(text string) []string {
	blocks := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(blocks))
	for _, block := range blocks {
		lines := strings.Split(block, "\n")
		kept := lines[:0]
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "#") {
				continue
			}
			kept = append(kept, line)
		}
		para := strings.Join(strings.Fields(strings.Join(kept, " ")), " ")
		if para != "" {
			out = append(out, para)
		}
	}
	return out
}

func (s *Splitter) cutWords(para string) []string {
	var out []string
	var b strings.Builder
	size := 0
	for _, word := range strings.Fields(para) {
		n := len([]rune(word))
		if size > 0 && size+1+n > s.ChunkSize {
			out = append(out, b.String())
			b.Reset()
			size = 0
		}
		if size > 0 {
			b.WriteByte(' ')
			size++
		}
		b.WriteString(word)
		size += n
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
