// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package image

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/gofrs/flock"
)

const classSuffix = ".class"

// Parse reads a class archive. Entries ending in ".class" are decoded into
// the class map; a failing entry is recorded in the report and skipped.
// Everything else is kept as an opaque resource.
func Parse(data []byte, codec Codec) (*Image, *Report, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}
	img := New()
	report := new(Report)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		content, err := readEntry(f)
		if err != nil {
			report.Add(&CodecError{Entry: f.Name, Err: err})
			continue
		}
		if !strings.HasSuffix(f.Name, classSuffix) {
			img.PutResource(f.Name, content)
			report.Resources++
			continue
		}
		c, err := codec.Decode(content)
		if err != nil {
			report.Add(&CodecError{Entry: f.Name, Err: err})
			continue
		}
		if err := img.AddClass(c); err != nil {
			report.Add(&CodecError{Entry: f.Name, Err: err})
			continue
		}
		report.Classes++
	}
	return img, report, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Serialize writes img as a class archive: classes first, then resources,
// each in name order. Entries matching remove are left out, as is the module
// descriptor. A class that fails to encode is recorded and left out.
func Serialize(img *Image, codec Codec, remove Filter) ([]byte, *Report, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	report := new(Report)
	for _, c := range img.Classes() {
		if c.Name == "module-info" || (remove != nil && remove(c.Name)) {
			continue
		}
		content, err := codec.Encode(c)
		if err != nil {
			report.Add(&DumpError{Class: c.Name, Err: err})
			continue
		}
		if err := writeEntry(zw, c.Name+classSuffix, content); err != nil {
			return nil, nil, err
		}
		report.Classes++
	}
	for _, name := range img.ResourceNames() {
		if remove != nil && remove(name) {
			continue
		}
		content, _ := img.Resource(name)
		if err := writeEntry(zw, name, content); err != nil {
			return nil, nil, err
		}
		report.Resources++
	}
	if err := zw.Close(); err != nil {
		return nil, nil, err
	}
	report.Bytes = int64(buf.Len())
	return buf.Bytes(), report, nil
}

func writeEntry(zw *zip.Writer, name string, content []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

// ReadFile parses the archive at path.
func ReadFile(path string, codec Codec) (*Image, *Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	log.WithField("path", path).Debug("reading archive")
	return Parse(data, codec)
}

// WriteFile serializes img to path. An advisory lock on path+".lock" keeps
// two concurrent runs from interleaving their output.
func WriteFile(path string, img *Image, codec Codec, remove Filter) (*Report, error) {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	defer func() {
		lock.Unlock()
		os.Remove(lock.Path())
	}()

	data, report, err := Serialize(img, codec, remove)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o666); err != nil {
		return nil, err
	}
	log.WithField("path", path).Debug("wrote archive")
	return report, nil
}
