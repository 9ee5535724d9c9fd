// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package main

import (
	"archive/zip"
	_ "embed"
	"flag"
	"fmt"
	mathrand "math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/bipbap/bipbap/internal/image"
	"github.com/bipbap/bipbap/internal/name"
)

//go:embed testdata/bench/class.yaml
var benchClass string

const benchClasses = 500

func writeBenchArchive(b *testing.B, path string) {
	f, err := os.Create(path)
	qt.Assert(b, qt.IsNil(err))
	defer f.Close()
	zw := zip.NewWriter(f)
	for i := range benchClasses {
		w, err := zw.Create(fmt.Sprintf("bench/C%d.class", i))
		qt.Assert(b, qt.IsNil(err))
		_, err = fmt.Fprintf(w, benchClass, i)
		qt.Assert(b, qt.IsNil(err))
	}
	qt.Assert(b, qt.IsNil(zw.Close()))
}

// BenchmarkObfuscate is a benchmark for a High intensity run over an
// archive of a few hundred small classes.
//
// We use a real bipbap binary and exec it, to simulate what the real user
// would run, including reading and writing the archives.
func BenchmarkObfuscate(b *testing.B) {
	// As of Go 1.17, using -benchtime=Nx with N larger than 1 results in two
	// calls to BenchmarkObfuscate, with the first having b.N==1 to discover
	// sub-benchmarks. Skip the pointless setup of that first call.
	// See https://github.com/golang/go/issues/32051.
	benchtime := flag.Lookup("test.benchtime").Value.String()
	if b.N == 1 && strings.HasSuffix(benchtime, "x") && benchtime != "1x" {
		return
	}
	tdir := b.TempDir()
	input := filepath.Join(tdir, "input.jar")
	output := filepath.Join(tdir, "output.jar")
	writeBenchArchive(b, input)

	var systemTime int64
	b.ResetTimer()
	b.StopTimer()
	for range b.N {
		cmd := exec.Command(os.Args[0], "--high", "--seed=YmVuY2hzZWVk", "-o", output, input)
		cmd.Env = append(cmd.Environ(), "RUN_BIPBAP_MAIN=true")

		b.StartTimer()
		out, err := cmd.CombinedOutput()
		b.StopTimer()

		qt.Assert(b, qt.IsNil(err), qt.Commentf("output: %s", out))
		qt.Assert(b, qt.IsTrue(strings.Contains(string(out), "bipbap summary")))
		systemTime += int64(cmd.ProcessState.SystemTime())
	}
	b.ReportMetric(float64(systemTime)/float64(b.N), "sys-ns/op")
	b.ReportMetric(float64(benchClasses), "classes")
	info, err := os.Stat(output)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportMetric(float64(info.Size()), "jar-B")
}

func BenchmarkReverse(b *testing.B) {
	// Two thousand renamed members and a hundred renamed classes is a
	// realistic figure for a mid-sized application.
	// Use a deterministic random source so it's stable between benchmark runs.
	rnd := mathrand.New(mathrand.NewSource(1))
	names := name.NewGenerator(rnd)
	m := make(image.Mapping)
	var generated []string
	for n := range 2000 {
		to := names.Next()
		m[fmt.Sprintf("app/C%d.member%d", n%100, n)] = to
		generated = append(generated, to)
	}
	for n := range 100 {
		to := "app/" + names.Next()
		m[fmt.Sprintf("app/C%d", n)] = to
		generated = append(generated, to)
	}
	repl := reverseReplacer(m)

	rnd.Shuffle(len(generated), func(i, j int) {
		generated[i], generated[j] = generated[j], generated[i]
	})
	inputs := []string{
		// nothing to reverse
		"\tat java.lang.Thread.run(Thread.java:833)\n",
		// a generated member of a generated class
		fmt.Sprintf("\tat %s.%s(Unknown Source)\n", strings.ReplaceAll(generated[0], "/", "."), generated[1]),
		// a long line of names
		strings.Join(generated[2:40], " ") + "\n",
	}

	var inputBytes int
	for _, input := range inputs {
		inputBytes += len(input)
	}
	b.SetBytes(int64(inputBytes))
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			for _, input := range inputs {
				repl.Replace(input)
			}
		}
	})
}
