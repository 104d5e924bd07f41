package pdf

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// removed counts the marker occurrences taken out of the content streams,
// per page and literal
type removed map[int]map[string]int

func (r removed) total() int {
	n := 0
	for _, lits := range r {
		for _, c := range lits {
			n += c
		}
	}
	return n
}

// markRemoved flags the matches whose text no longer exists in the output.
// Matches beyond the removed counts keep their white mask.
func markRemoved(scan Scan, r removed) Scan {
	left := make(map[int]map[string]int, len(r))
	for page, lits := range r {
		left[page] = make(map[string]int, len(lits))
		for lit, c := range lits {
			left[page][lit] = c
		}
	}

	out := Scan{Pages: scan.Pages, Matches: make([]Match, len(scan.Matches))}
	for i, m := range scan.Matches {
		if left[m.Page][m.Literal] > 0 {
			left[m.Page][m.Literal]--
			m.Removed = true
		}
		out.Matches[i] = m
	}
	return out
}

// literalsByPage lists the distinct marker literals found on each page
func (s Scan) literalsByPage() map[int][]string {
	out := make(map[int][]string)
	for _, m := range s.Matches {
		dup := false
		for _, lit := range out[m.Page] {
			if lit == m.Literal {
				dup = true
				break
			}
		}
		if !dup {
			out[m.Page] = append(out[m.Page], m.Literal)
		}
	}
	return out
}

// scrubFile writes a copy of inFile without the given marker literals in the
// page content streams. Nothing is written when no occurrence was removed.
func scrubFile(inFile, outFile string, literals map[int][]string) (removed, error) {
	f, err := os.Open(inFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ctx, err := api.ReadAndValidate(f, relaxedConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	r, err := scrubPages(ctx, literals)
	if err != nil {
		return nil, err
	}
	if r.total() == 0 {
		return r, nil
	}
	if err := api.WriteContextFile(ctx, outFile); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return r, nil
}

// scrubPages rewrites the content streams of the listed pages in ctx
func scrubPages(ctx *model.Context, literals map[int][]string) (removed, error) {
	r := make(removed)
	for page, lits := range literals {
		if page < 1 || page > ctx.PageCount {
			continue
		}
		d, _, _, err := ctx.PageDict(page, false)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if d == nil {
			continue
		}
		obj, found := d.Find("Contents")
		if !found {
			continue
		}

		counts := make(map[string]int)
		for _, ref := range contentRefs(ctx, obj) {
			if err := scrubStream(ctx, ref, lits, counts); err != nil {
				return nil, fmt.Errorf("page %d: %w", page, err)
			}
		}
		if len(counts) > 0 {
			r[page] = counts
		}
	}
	return r, nil
}

// contentRefs resolves a page Contents entry into its stream references.
// Direct stream objects cannot be written back and are left alone.
func contentRefs(ctx *model.Context, obj types.Object) []types.IndirectRef {
	switch o := obj.(type) {
	case types.IndirectRef:
		entry, ok := ctx.FindTableEntryForIndRef(&o)
		if !ok || entry.Object == nil {
			return nil
		}
		if arr, ok := entry.Object.(types.Array); ok {
			return contentRefs(ctx, arr)
		}
		return []types.IndirectRef{o}
	case types.Array:
		var refs []types.IndirectRef
		for _, el := range o {
			if ref, ok := el.(types.IndirectRef); ok {
				refs = append(refs, ref)
			}
		}
		return refs
	}
	return nil
}

func scrubStream(ctx *model.Context, ref types.IndirectRef, lits []string, counts map[string]int) error {
	entry, ok := ctx.FindTableEntryForIndRef(&ref)
	if !ok {
		return nil
	}
	sd, ok := entry.Object.(types.StreamDict)
	if !ok {
		return nil
	}
	// unsupported filters keep the stream as is
	if err := sd.Decode(); err != nil || sd.Content == nil {
		return nil
	}

	content, n := scrubContent(sd.Content, lits)
	if len(n) == 0 {
		return nil
	}
	sd.Content = content
	if err := sd.Encode(); err != nil {
		return fmt.Errorf("failed to encode content stream %d: %w", ref.ObjectNumber.Value(), err)
	}
	entry.Object = sd

	for lit, c := range n {
		counts[lit] += c
	}
	return nil
}

// scrubContent removes every occurrence of lits from the strings shown by
// Tj, ' and TJ. A string holding a marker becomes a TJ array where the
// marker is a negative displacement of its estimated width, so the text
// after it keeps its position. Strings split across several show operators,
// hex strings and the " operator are left untouched.
func scrubContent(content []byte, lits []string) ([]byte, map[string]int) {
	s := &contentScrubber{src: content, lits: lits, counts: make(map[string]int)}
	s.run()
	if len(s.counts) == 0 {
		return content, nil
	}
	return s.out.Bytes(), s.counts
}

type contentScrubber struct {
	src    []byte
	pos    int
	out    bytes.Buffer
	lits   []string
	counts map[string]int
	arrays int
}

func (s *contentScrubber) run() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '%':
			end := bytes.IndexAny(s.src[s.pos:], "\r\n")
			if end < 0 {
				end = len(s.src) - s.pos
			}
			s.copy(end)
		case c == '(':
			if !s.literal() {
				s.copy(len(s.src) - s.pos)
			}
		case c == '<' && s.peek(1) == '<', c == '>' && s.peek(1) == '>':
			s.copy(2)
		case c == '<':
			end := bytes.IndexByte(s.src[s.pos:], '>')
			if end < 0 {
				end = len(s.src) - s.pos - 1
			}
			s.copy(end + 1)
		case c == '[':
			s.arrays++
			s.copy(1)
		case c == ']':
			if s.arrays > 0 {
				s.arrays--
			}
			s.copy(1)
		case isDelimiter(c) || isSpace(c):
			s.copy(1)
		default:
			tok := s.token(s.pos)
			s.copy(len(tok))
			if tok == "ID" {
				s.inlineImage()
			}
		}
	}
}

// literal handles a string starting at pos and reports whether it was
// terminated
func (s *contentScrubber) literal() bool {
	start := s.pos
	text, end, ok := decodeLiteral(s.src, start)
	if !ok {
		return false
	}
	s.pos = end

	elems, n := s.split(text)
	if n == nil {
		s.out.Write(s.src[start:end])
		return true
	}

	if s.arrays > 0 {
		fmt.Fprintf(&s.out, " %s ", elems)
		s.commit(n)
		return true
	}

	next := s.skipSpace(end)
	switch tok := s.token(next); tok {
	case "Tj":
		fmt.Fprintf(&s.out, "[%s] TJ", elems)
	case "'":
		fmt.Fprintf(&s.out, "T* [%s] TJ", elems)
	default:
		s.out.Write(s.src[start:end])
		return true
	}
	s.pos = next + len(s.token(next))
	s.commit(n)
	return true
}

func (s *contentScrubber) commit(n map[string]int) {
	for lit, c := range n {
		s.counts[lit] += c
	}
}

// split returns text as TJ elements with every marker replaced by a
// displacement, or nil counts when text holds no marker
func (s *contentScrubber) split(text []byte) (string, map[string]int) {
	var (
		b      strings.Builder
		counts map[string]int
		rest   = text
	)
	for {
		at, lit := earliest(rest, s.lits)
		if at < 0 {
			break
		}
		if counts == nil {
			counts = make(map[string]int)
		}
		counts[lit]++
		writeElem(&b, escapeLiteral(rest[:at]))
		writeElem(&b, fmt.Sprintf("%d", -markerAdvance(lit)))
		rest = rest[at+len(lit):]
	}
	if counts == nil {
		return "", nil
	}
	writeElem(&b, escapeLiteral(rest))
	return b.String(), counts
}

// markerAdvance is the estimated width of lit in thousandths of an em
func markerAdvance(lit string) int {
	return int(math.Round(float64(utf8.RuneCountInString(lit)) * estimatedAdvance * 1000))
}

func writeElem(b *strings.Builder, elem string) {
	if elem == "" || elem == "()" {
		return
	}
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(elem)
}

func earliest(text []byte, lits []string) (int, string) {
	at, found := -1, ""
	for _, lit := range lits {
		if lit == "" {
			continue
		}
		i := bytes.Index(text, []byte(lit))
		if i >= 0 && (at < 0 || i < at || i == at && len(lit) > len(found)) {
			at, found = i, lit
		}
	}
	return at, found
}

// inlineImage copies binary image data up to the EI operator
func (s *contentScrubber) inlineImage() {
	for i := s.pos; i+1 < len(s.src); i++ {
		if s.src[i] != 'E' || s.src[i+1] != 'I' {
			continue
		}
		if i > 0 && !isSpace(s.src[i-1]) {
			continue
		}
		if i+2 < len(s.src) && !isSpace(s.src[i+2]) && !isDelimiter(s.src[i+2]) {
			continue
		}
		s.copy(i + 2 - s.pos)
		return
	}
	s.copy(len(s.src) - s.pos)
}

func (s *contentScrubber) copy(n int) {
	s.out.Write(s.src[s.pos : s.pos+n])
	s.pos += n
}

func (s *contentScrubber) peek(off int) byte {
	if s.pos+off < len(s.src) {
		return s.src[s.pos+off]
	}
	return 0
}

func (s *contentScrubber) skipSpace(i int) int {
	for i < len(s.src) && isSpace(s.src[i]) {
		i++
	}
	return i
}

// token returns the run of regular characters at i
func (s *contentScrubber) token(i int) string {
	j := i
	for j < len(s.src) && !isSpace(s.src[j]) && !isDelimiter(s.src[j]) {
		j++
	}
	return string(s.src[i:j])
}

// decodeLiteral reads the literal string opening at src[start] and returns
// its bytes and the offset after the closing parenthesis
func decodeLiteral(src []byte, start int) ([]byte, int, bool) {
	var out []byte
	depth := 0
	for i := start; i < len(src); i++ {
		c := src[i]
		switch c {
		case '(':
			depth++
			if depth > 1 {
				out = append(out, c)
			}
		case ')':
			depth--
			if depth == 0 {
				return out, i + 1, true
			}
			out = append(out, c)
		case '\\':
			i++
			if i >= len(src) {
				return nil, 0, false
			}
			switch e := src[i]; e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if i+1 < len(src) && src[i+1] == '\n' {
					i++
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := int(e - '0')
				for k := 0; k < 2 && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '7'; k++ {
					i++
					v = v*8 + int(src[i]-'0')
				}
				out = append(out, byte(v))
			default:
				out = append(out, e)
			}
		default:
			out = append(out, c)
		}
	}
	return nil, 0, false
}

func escapeLiteral(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, c := range b {
		switch c {
		case '\\', '(', ')':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
