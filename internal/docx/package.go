package docx

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"time"
)

// Well-known part names
const (
	documentPart     = "word/document.xml"
	documentRelsPart = "word/_rels/document.xml.rels"
	contentTypesPart = "[Content_Types].xml"
)

type part struct {
	name     string
	modified time.Time
	data     []byte
}

// pkg is an OPC package held in memory, parts kept in their original order
type pkg struct {
	parts []*part
	index map[string]*part
}

func openPackage(path string) (*pkg, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open DOCX package: %w", err)
	}
	defer zr.Close()

	p := &pkg{index: make(map[string]*part, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", f.Name, err)
		}
		pt := &part{name: f.Name, modified: f.Modified, data: data}
		p.parts = append(p.parts, pt)
		p.index[f.Name] = pt
	}

	if _, ok := p.index[documentPart]; !ok {
		return nil, fmt.Errorf("not a WordprocessingML package: %s missing", documentPart)
	}
	return p, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (p *pkg) get(name string) ([]byte, bool) {
	pt, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return pt.data, true
}

func (p *pkg) has(name string) bool {
	_, ok := p.index[name]
	return ok
}

// set replaces a part, appending it when it does not exist yet
func (p *pkg) set(name string, data []byte) {
	if pt, ok := p.index[name]; ok {
		pt.data = data
		pt.modified = time.Now()
		return
	}
	pt := &part{name: name, modified: time.Now(), data: data}
	p.parts = append(p.parts, pt)
	p.index[name] = pt
}

// write serializes the package to w
func (p *pkg) write(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, pt := range p.parts {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     pt.name,
			Method:   zip.Deflate,
			Modified: pt.modified,
		})
		if err != nil {
			return err
		}
		if _, err := fw.Write(pt.data); err != nil {
			return err
		}
	}
	return zw.Close()
}

// writeFile writes the package next to path and renames it into place
func (p *pkg) writeFile(path, dir string) error {
	f, err := os.CreateTemp(dir, ".signing-*.docx")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := p.write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
