package docx

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // signature assets may be JPEG
	_ "image/png"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	emuPerInch = 914400

	relsNS       = "http://schemas.openxmlformats.org/package/2006/relationships"
	imageRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

var contentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
}

// picture is a signature image registered in the package
type picture struct {
	relID  string
	name   string
	cx, cy int64
}

// addImage stores the image under word/media, relates it to the document and
// registers its content type
func (p *pkg) addImage(imgPath string, widthInches float64) (*picture, error) {
	data, err := os.ReadFile(imgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read signature image: %w", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot decode signature image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("signature image has no area")
	}
	if _, ok := contentTypes[format]; !ok {
		return nil, fmt.Errorf("unsupported signature image format: %s", format)
	}

	media := p.freeMediaName(format)
	p.set("word/"+media, data)

	relID, err := p.addRelationship(media)
	if err != nil {
		return nil, err
	}
	if err := p.ensureContentType(format); err != nil {
		return nil, err
	}

	cx := int64(widthInches * emuPerInch)
	return &picture{
		relID: relID,
		name:  path.Base(media),
		cx:    cx,
		cy:    cx * int64(cfg.Height) / int64(cfg.Width),
	}, nil
}

func (p *pkg) freeMediaName(ext string) string {
	for n := 1; ; n++ {
		name := fmt.Sprintf("media/signature%d.%s", n, ext)
		if !p.has("word/" + name) {
			return name
		}
	}
}

// addRelationship adds an image relationship to the document part and returns its id
func (p *pkg) addRelationship(target string) (string, error) {
	doc := etree.NewDocument()
	if data, ok := p.get(documentRelsPart); ok {
		if err := doc.ReadFromBytes(data); err != nil {
			return "", fmt.Errorf("cannot parse %s: %w", documentRelsPart, err)
		}
	} else {
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
		doc.CreateElement("Relationships").CreateAttr("xmlns", relsNS)
	}

	root := doc.Root()
	if root == nil {
		return "", fmt.Errorf("%s has no root element", documentRelsPart)
	}

	maxID := 0
	for _, rel := range root.SelectElements("Relationship") {
		id := rel.SelectAttrValue("Id", "")
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "rId")); err == nil && n > maxID {
			maxID = n
		}
	}

	id := "rId" + strconv.Itoa(maxID+1)
	rel := root.CreateElement("Relationship")
	rel.CreateAttr("Id", id)
	rel.CreateAttr("Type", imageRelType)
	rel.CreateAttr("Target", target)

	out, err := doc.WriteToBytes()
	if err != nil {
		return "", err
	}
	p.set(documentRelsPart, out)
	return id, nil
}

// ensureContentType adds a Default entry for the image extension when missing
func (p *pkg) ensureContentType(ext string) error {
	data, ok := p.get(contentTypesPart)
	if !ok {
		return fmt.Errorf("%s missing", contentTypesPart)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return fmt.Errorf("cannot parse %s: %w", contentTypesPart, err)
	}
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("%s has no root element", contentTypesPart)
	}

	for _, d := range root.SelectElements("Default") {
		if strings.EqualFold(d.SelectAttrValue("Extension", ""), ext) {
			return nil
		}
	}

	def := etree.NewElement("Default")
	def.CreateAttr("Extension", ext)
	def.CreateAttr("ContentType", contentTypes[ext])
	root.InsertChildAt(0, def)

	out, err := doc.WriteToBytes()
	if err != nil {
		return err
	}
	p.set(contentTypesPart, out)
	return nil
}

const drawingXML = `<w:r xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
	`<w:drawing>` +
	`<wp:inline xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" distT="0" distB="0" distL="0" distR="0">` +
	`<wp:extent cx="%[1]d" cy="%[2]d"/>` +
	`<wp:docPr id="%[3]d" name="Signature %[3]d"/>` +
	`<wp:cNvGraphicFramePr><a:graphicFrameLocks xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" noChangeAspect="1"/></wp:cNvGraphicFramePr>` +
	`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">` +
	`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:nvPicPr><pic:cNvPr id="0" name="%[4]s"/><pic:cNvPicPr/></pic:nvPicPr>` +
	`<pic:blipFill><a:blip r:embed="%[5]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>` +
	`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>` +
	`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`

// run builds a w:r holding the inline picture
func (pic *picture) run(docPrID int) (*etree.Element, error) {
	frag := etree.NewDocument()
	if err := frag.ReadFromString(fmt.Sprintf(drawingXML, pic.cx, pic.cy, docPrID, pic.name, pic.relID)); err != nil {
		return nil, err
	}
	return frag.Root(), nil
}

// nextDocPrID returns an id above every wp:docPr id in the document
func nextDocPrID(doc *etree.Document) int {
	maxID := 0
	for _, el := range doc.FindElements("//wp:docPr") {
		if n, err := strconv.Atoi(el.SelectAttrValue("id", "")); err == nil && n > maxID {
			maxID = n
		}
	}
	return maxID + 1
}
