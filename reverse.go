// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package main

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/bipbap/bipbap/internal/image"
	"github.com/bipbap/bipbap/internal/jvm"
)

func newReverseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <mapping> [files]",
		Short: "De-obfuscate output such as stack traces",
		Long: `reverse replaces the generated names in text with the original ones,
using the mapping written by a run with --mapping. The text is read from the
given files, or from standard input.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commandReverse(cmd.OutOrStdout(), cmd.InOrStdin(), args[0], args[1:])
		},
	}
}

// commandReverse implements "bipbap reverse".
func commandReverse(w io.Writer, stdin io.Reader, mappingPath string, paths []string) error {
	m, err := image.LoadMapping(mappingPath)
	if err != nil {
		return err
	}
	repl := reverseReplacer(m)

	// TODO: fail when none of the input contained a generated name.
	if len(paths) == 0 {
		return reverseContent(w, stdin, repl)
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		err = reverseContent(w, f, repl)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// reverseReplacer turns generated names back into the original ones. Class
// names are replaced in both internal and binary form. Longer names go
// first, so a class is not reversed through a shorter name it starts with.
// A generated name shared by unrelated members reverses to the first of
// them in key order.
func reverseReplacer(m image.Mapping) *strings.Replacer {
	type pair struct{ from, to string }
	seen := make(map[string]bool)
	var pairs []pair
	add := func(from, to string) {
		if from == to || seen[from] {
			return
		}
		seen[from] = true
		pairs = append(pairs, pair{from, to})
	}
	keys := maps.Keys(m)
	slices.Sort(keys)
	for _, key := range keys {
		to := m[key]
		_, member, ok := strings.Cut(key, ".")
		if !ok {
			add(to, key)
			add(jvm.BinaryName(to), jvm.BinaryName(key))
			continue
		}
		name, _, _ := strings.Cut(member, "(")
		add(to, name)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if len(pairs[i].from) != len(pairs[j].from) {
			return len(pairs[i].from) > len(pairs[j].from)
		}
		return pairs[i].from < pairs[j].from
	})
	var oldnew []string
	for _, p := range pairs {
		oldnew = append(oldnew, p.from, p.to)
	}
	return strings.NewReplacer(oldnew...)
}

func reverseContent(w io.Writer, r io.Reader, repl *strings.Replacer) error {
	// Read line by line.
	// Reading the entire content at once wouldn't be interactive,
	// nor would it support large files well.
	// Reading entire lines ensures we don't cut words in half.
	// We use bufio.Reader instead of bufio.Scanner,
	// to also obtain the newline characters themselves.
	br := bufio.NewReader(r)
	for {
		// Note that ReadString can return a line as well as an error if
		// we hit EOF without a newline.
		// In that case, we still want to process the string.
		line, readErr := br.ReadString('\n')
		if _, err := repl.WriteString(w, line); err != nil {
			return err
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
