// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package image

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/bipbap/bipbap/internal/jvm"
)

// nameCodec encodes a class as its bare name and refuses to decode entries
// starting with "bad".
type nameCodec struct{}

func (nameCodec) Decode(data []byte) (*jvm.Class, error) {
	if bytes.HasPrefix(data, []byte("bad")) {
		return nil, errors.New("malformed class")
	}
	return jvm.NewClass(string(data), jvm.V1_8), nil
}

func (nameCodec) Encode(c *jvm.Class) ([]byte, error) {
	if strings.HasSuffix(c.Name, "Broken") {
		return nil, errors.New("cannot encode")
	}
	return []byte(c.Name), nil
}

func buildArchive(t *testing.T, entries map[string]string, order ...string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		qt.Assert(t, qt.IsNil(err))
		_, err = w.Write([]byte(entries[name]))
		qt.Assert(t, qt.IsNil(err))
	}
	qt.Assert(t, qt.IsNil(zw.Close()))
	return buf.Bytes()
}

func entryNames(t *testing.T, data []byte) []string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	qt.Assert(t, qt.IsNil(err))
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestParse(t *testing.T) {
	entries := map[string]string{
		"a/A.class":            "a/A",
		"a/B.class":            "a/B",
		"a/Bad.class":          "bad bytes",
		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0\n",
		"assets/":              "",
	}
	data := buildArchive(t, entries, "META-INF/MANIFEST.MF", "assets/", "a/A.class", "a/Bad.class", "a/B.class")

	img, report, err := Parse(data, nameCodec{})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(img.Len(), 2))
	qt.Assert(t, qt.Equals(report.Classes, 2))
	qt.Assert(t, qt.Equals(report.Resources, 1))
	qt.Assert(t, qt.DeepEquals(img.ResourceNames(), []string{"META-INF/MANIFEST.MF"}))

	errs := report.Errors()
	qt.Assert(t, qt.HasLen(errs, 1))
	var cerr *CodecError
	qt.Assert(t, qt.ErrorAs(errs[0], &cerr))
	qt.Assert(t, qt.Equals(cerr.Entry, "a/Bad.class"))
}

func TestParseNotAnArchive(t *testing.T) {
	_, _, err := Parse([]byte("definitely not a zip"), nameCodec{})
	qt.Assert(t, qt.IsNotNil(err))
}

func TestSerialize(t *testing.T) {
	img := New()
	for _, name := range []string{"b/Second", "a/First", "a/Broken", "module-info", "gen/Removed"} {
		qt.Assert(t, qt.IsNil(img.AddClass(jvm.NewClass(name, jvm.V1_8))))
	}
	img.PutResource("z.txt", []byte("z"))
	img.PutResource("gen/drop.txt", []byte("drop"))

	remove := func(name string) bool { return strings.HasPrefix(name, "gen/") }
	data, report, err := Serialize(img, nameCodec{}, remove)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(entryNames(t, data), []string{"a/First.class", "b/Second.class", "z.txt"}))
	qt.Assert(t, qt.Equals(report.Classes, 2))
	qt.Assert(t, qt.Equals(report.Resources, 1))

	var derr *DumpError
	qt.Assert(t, qt.ErrorAs(report.Err(), &derr))
	qt.Assert(t, qt.Equals(derr.Class, "a/Broken"))

	// What we wrote parses back to the same classes and resources.
	back, _, err := Parse(data, nameCodec{})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(back.Len(), 2))
	content, ok := back.Resource("z.txt")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(string(content), "z"))
}

func TestAddClassDuplicate(t *testing.T) {
	img := New()
	qt.Assert(t, qt.IsNil(img.AddClass(jvm.NewClass("a/A", jvm.V1_8))))
	qt.Assert(t, qt.ErrorMatches(img.AddClass(jvm.NewClass("a/A", jvm.V1_8)), "duplicate class a/A"))
}

func TestNonExcluded(t *testing.T) {
	img := New()
	for _, name := range []string{"kotlin/Unit", "a/A", "a/B", "b/C"} {
		qt.Assert(t, qt.IsNil(img.AddClass(jvm.NewClass(name, jvm.V1_8))))
	}
	got := img.NonExcluded(
		func(name string) bool { return strings.HasPrefix(name, "kotlin/") },
		func(name string) bool { return name == "a/B" },
		nil,
	)
	var names []string
	for _, c := range got {
		names = append(names, c.Name)
	}
	qt.Assert(t, qt.DeepEquals(names, []string{"a/A", "b/C"}))
	qt.Assert(t, qt.Equals(img.Len(), 4))
}
