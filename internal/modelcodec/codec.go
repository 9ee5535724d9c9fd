// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package modelcodec stores the class model as YAML documents, with method
// bodies in a line-oriented assembly form. It is the interchange format used
// by the command line tool and by tests; archives of real compiled classes go
// through a binary codec that implements the same interface.
package modelcodec

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/bipbap/bipbap/internal/jvm"
)

// Codec implements image.Codec.
type Codec struct{}

type classDoc struct {
	Version         int            `yaml:"version"`
	Access          jvm.Access     `yaml:"access"`
	Name            string         `yaml:"name"`
	Signature       string         `yaml:"signature,omitempty"`
	Super           string         `yaml:"super,omitempty"`
	Interfaces      []string       `yaml:"interfaces,omitempty"`
	SourceFile      string         `yaml:"source_file,omitempty"`
	SourceDebug     string         `yaml:"source_debug,omitempty"`
	OuterClass      string         `yaml:"outer_class,omitempty"`
	OuterMethod     string         `yaml:"outer_method,omitempty"`
	OuterMethodDesc string         `yaml:"outer_method_desc,omitempty"`
	InnerClasses    []innerDoc     `yaml:"inner_classes,omitempty"`
	Annotations     annotationsDoc `yaml:",inline"`
	Fields          []fieldDoc     `yaml:"fields,omitempty"`
	Methods         []methodDoc    `yaml:"methods,omitempty"`
}

type innerDoc struct {
	Name      string     `yaml:"name"`
	OuterName string     `yaml:"outer_name,omitempty"`
	InnerName string     `yaml:"inner_name,omitempty"`
	Access    jvm.Access `yaml:"access"`
}

type annotationsDoc struct {
	Visible   []annotationDoc `yaml:"visible_annotations,omitempty"`
	Invisible []annotationDoc `yaml:"invisible_annotations,omitempty"`
}

type annotationDoc struct {
	Desc   string         `yaml:"desc"`
	Values map[string]any `yaml:"values,omitempty"`
}

type fieldDoc struct {
	Access      jvm.Access     `yaml:"access"`
	Name        string         `yaml:"name"`
	Desc        string         `yaml:"desc"`
	Signature   string         `yaml:"signature,omitempty"`
	Value       string         `yaml:"value,omitempty"`
	Annotations annotationsDoc `yaml:",inline"`
}

type methodDoc struct {
	Access      jvm.Access     `yaml:"access"`
	Name        string         `yaml:"name"`
	Desc        string         `yaml:"desc"`
	Signature   string         `yaml:"signature,omitempty"`
	Exceptions  []string       `yaml:"exceptions,omitempty"`
	Code        string         `yaml:"code,omitempty"`
	TryCatch    []tryCatchDoc  `yaml:"try_catch,omitempty"`
	Locals      []localDoc     `yaml:"locals,omitempty"`
	Annotations annotationsDoc `yaml:",inline"`
}

type tryCatchDoc struct {
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Handler string `yaml:"handler"`
	Type    string `yaml:"type,omitempty"`
}

type localDoc struct {
	Name      string `yaml:"name"`
	Desc      string `yaml:"desc"`
	Signature string `yaml:"signature,omitempty"`
	Start     string `yaml:"start"`
	End       string `yaml:"end"`
	Index     int    `yaml:"index"`
}

func (Codec) Decode(data []byte) (*jvm.Class, error) {
	var doc classDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("class without a name")
	}
	c := &jvm.Class{
		Version:              doc.Version,
		Access:               doc.Access,
		Name:                 doc.Name,
		Signature:            doc.Signature,
		Super:                doc.Super,
		Interfaces:           doc.Interfaces,
		SourceFile:           doc.SourceFile,
		SourceDebug:          doc.SourceDebug,
		OuterClass:           doc.OuterClass,
		OuterMethod:          doc.OuterMethod,
		OuterMethodDesc:      doc.OuterMethodDesc,
		VisibleAnnotations:   decodeAnnotations(doc.Annotations.Visible),
		InvisibleAnnotations: decodeAnnotations(doc.Annotations.Invisible),
	}
	for _, ic := range doc.InnerClasses {
		c.InnerClasses = append(c.InnerClasses, jvm.InnerClass(ic))
	}
	for _, fd := range doc.Fields {
		f := &jvm.Field{
			Access:               fd.Access,
			Name:                 fd.Name,
			Desc:                 fd.Desc,
			Signature:            fd.Signature,
			VisibleAnnotations:   decodeAnnotations(fd.Annotations.Visible),
			InvisibleAnnotations: decodeAnnotations(fd.Annotations.Invisible),
		}
		if fd.Value != "" {
			toks, err := tokenize(fd.Value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", fd.Name, err)
			}
			v, _, err := parseConst(toks)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", fd.Name, err)
			}
			f.Value = v
		}
		c.Fields = append(c.Fields, f)
	}
	for _, md := range doc.Methods {
		m, err := decodeMethod(md)
		if err != nil {
			return nil, fmt.Errorf("method %s%s: %w", md.Name, md.Desc, err)
		}
		c.Methods = append(c.Methods, m)
	}
	return c, nil
}

func decodeMethod(md methodDoc) (*jvm.Method, error) {
	m := &jvm.Method{
		Access:               md.Access,
		Name:                 md.Name,
		Desc:                 md.Desc,
		Signature:            md.Signature,
		Exceptions:           md.Exceptions,
		VisibleAnnotations:   decodeAnnotations(md.Annotations.Visible),
		InvisibleAnnotations: decodeAnnotations(md.Annotations.Invisible),
	}
	p := newCodeParser()
	code, err := p.parse(md.Code)
	if err != nil {
		return nil, err
	}
	m.Instructions = code
	for _, td := range md.TryCatch {
		var tc jvm.TryCatch
		if tc.Start, err = p.lookup(td.Start); err != nil {
			return nil, err
		}
		if tc.End, err = p.lookup(td.End); err != nil {
			return nil, err
		}
		if tc.Handler, err = p.lookup(td.Handler); err != nil {
			return nil, err
		}
		tc.Type = td.Type
		m.TryCatchBlocks = append(m.TryCatchBlocks, tc)
	}
	for _, ld := range md.Locals {
		lv := jvm.LocalVariable{Name: ld.Name, Desc: ld.Desc, Signature: ld.Signature, Index: ld.Index}
		if lv.Start, err = p.lookup(ld.Start); err != nil {
			return nil, err
		}
		if lv.End, err = p.lookup(ld.End); err != nil {
			return nil, err
		}
		m.LocalVariables = append(m.LocalVariables, lv)
	}
	return m, nil
}

func decodeAnnotations(docs []annotationDoc) []jvm.Annotation {
	var out []jvm.Annotation
	for _, d := range docs {
		out = append(out, jvm.Annotation(d))
	}
	return out
}

func (Codec) Encode(c *jvm.Class) ([]byte, error) {
	doc := classDoc{
		Version:         c.Version,
		Access:          c.Access,
		Name:            c.Name,
		Signature:       c.Signature,
		Super:           c.Super,
		Interfaces:      c.Interfaces,
		SourceFile:      c.SourceFile,
		SourceDebug:     c.SourceDebug,
		OuterClass:      c.OuterClass,
		OuterMethod:     c.OuterMethod,
		OuterMethodDesc: c.OuterMethodDesc,
		Annotations:     encodeAnnotations(c.VisibleAnnotations, c.InvisibleAnnotations),
	}
	for _, ic := range c.InnerClasses {
		doc.InnerClasses = append(doc.InnerClasses, innerDoc(ic))
	}
	for _, f := range c.Fields {
		fd := fieldDoc{
			Access:      f.Access,
			Name:        f.Name,
			Desc:        f.Desc,
			Signature:   f.Signature,
			Annotations: encodeAnnotations(f.VisibleAnnotations, f.InvisibleAnnotations),
		}
		if f.Value != nil {
			v, err := formatConst(f.Value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			fd.Value = v
		}
		doc.Fields = append(doc.Fields, fd)
	}
	for _, m := range c.Methods {
		md, err := encodeMethod(m)
		if err != nil {
			return nil, fmt.Errorf("method %s%s: %w", m.Name, m.Desc, err)
		}
		doc.Methods = append(doc.Methods, md)
	}
	return yaml.Marshal(&doc)
}

func encodeMethod(m *jvm.Method) (methodDoc, error) {
	md := methodDoc{
		Access:      m.Access,
		Name:        m.Name,
		Desc:        m.Desc,
		Signature:   m.Signature,
		Exceptions:  m.Exceptions,
		Annotations: encodeAnnotations(m.VisibleAnnotations, m.InvisibleAnnotations),
	}
	ln := newLabelNames(m.Instructions)
	code, err := formatCode(m.Instructions, ln)
	if err != nil {
		return md, err
	}
	md.Code = code
	for _, tc := range m.TryCatchBlocks {
		md.TryCatch = append(md.TryCatch, tryCatchDoc{
			Start:   ln.name(tc.Start),
			End:     ln.name(tc.End),
			Handler: ln.name(tc.Handler),
			Type:    tc.Type,
		})
	}
	for _, lv := range m.LocalVariables {
		md.Locals = append(md.Locals, localDoc{
			Name:      lv.Name,
			Desc:      lv.Desc,
			Signature: lv.Signature,
			Start:     ln.name(lv.Start),
			End:       ln.name(lv.End),
			Index:     lv.Index,
		})
	}
	return md, nil
}

func encodeAnnotations(visible, invisible []jvm.Annotation) annotationsDoc {
	var doc annotationsDoc
	for _, a := range visible {
		doc.Visible = append(doc.Visible, annotationDoc(a))
	}
	for _, a := range invisible {
		doc.Invisible = append(doc.Invisible, annotationDoc(a))
	}
	return doc
}
