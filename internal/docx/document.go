package docx

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/a3tai/mcp-doc-signer/internal/placeholder"
)

// paragraph wraps a w:p element
type paragraph struct {
	el *etree.Element
}

func paragraphs(doc *etree.Document) []paragraph {
	els := doc.FindElements("//w:p")
	out := make([]paragraph, len(els))
	for i, el := range els {
		out[i] = paragraph{el: el}
	}
	return out
}

// texts returns the w:t elements belonging to this paragraph, skipping those
// of paragraphs nested inside it (text boxes)
func (p paragraph) texts() []*etree.Element {
	var out []*etree.Element
	for _, t := range p.el.FindElements(".//w:t") {
		if owner(t) == p.el {
			out = append(out, t)
		}
	}
	return out
}

func owner(el *etree.Element) *etree.Element {
	for e := el.Parent(); e != nil; e = e.Parent() {
		if e.Space == "w" && e.Tag == "p" {
			return e
		}
	}
	return nil
}

// Text returns the concatenated run text
func (p paragraph) Text() string {
	var b strings.Builder
	for _, t := range p.texts() {
		b.WriteString(t.Text())
	}
	return b.String()
}

// replace substitutes every occurrence of the family with value. A marker
// inside one w:t keeps that run; a marker spread over several runs is
// collapsed into the first of them.
func (p paragraph) replace(set placeholder.Set, f placeholder.Family, value string) int {
	texts := p.texts()
	if len(texts) == 0 {
		return 0
	}

	starts := make([]int, len(texts))
	var b strings.Builder
	for i, t := range texts {
		starts[i] = b.Len()
		b.WriteString(t.Text())
	}
	full := b.String()

	occs := set.FindAll(full, f)
	// right to left so earlier offsets stay valid
	for k := len(occs) - 1; k >= 0; k-- {
		occ := occs[k]
		first := locate(starts, occ.Start)
		last := locate(starts, occ.End-1)

		ft := texts[first]
		head := ft.Text()[:occ.Start-starts[first]]
		if first == last {
			tail := ft.Text()[occ.End-starts[first]:]
			setText(ft, head+value+tail)
			continue
		}

		lt := texts[last]
		setText(lt, lt.Text()[occ.End-starts[last]:])
		for i := first + 1; i < last; i++ {
			setText(texts[i], "")
		}
		setText(ft, head+value)
	}
	return len(occs)
}

// locate returns the index of the text element holding byte offset off
func locate(starts []int, off int) int {
	i := 0
	for j, s := range starts {
		if s <= off {
			i = j
		}
	}
	return i
}

func setText(t *etree.Element, s string) {
	t.SetText(s)
	if t.SelectAttr("xml:space") == nil {
		t.CreateAttr("xml:space", "preserve")
	}
}

// clear removes everything except the paragraph properties
func (p paragraph) clear() {
	for _, child := range p.el.ChildElements() {
		if child.Space == "w" && child.Tag == "pPr" {
			continue
		}
		p.el.RemoveChild(child)
	}
}

// alignLeft sets w:jc to left in the paragraph properties
func (p paragraph) alignLeft() {
	ppr := p.el.SelectElement("w:pPr")
	if ppr == nil {
		ppr = etree.NewElement("w:pPr")
		p.el.InsertChildAt(0, ppr)
	}
	jc := ppr.SelectElement("w:jc")
	if jc == nil {
		jc = ppr.CreateElement("w:jc")
	}
	jc.CreateAttr("w:val", "left")
}

// newTextParagraph builds <w:p><w:r><w:t>text</w:t></w:r></w:p>
func newTextParagraph(text string) *etree.Element {
	p := etree.NewElement("w:p")
	if text == "" {
		return p
	}
	t := p.CreateElement("w:r").CreateElement("w:t")
	setText(t, text)
	return p
}

// appendToBody inserts paragraphs at the end of the body, before w:sectPr
func appendToBody(doc *etree.Document, els ...*etree.Element) bool {
	body := doc.FindElement("//w:body")
	if body == nil {
		return false
	}

	at := len(body.Child)
	if sect := body.SelectElement("w:sectPr"); sect != nil {
		at = sect.Index()
	}
	for i, el := range els {
		body.InsertChildAt(at+i, el)
	}
	return true
}
