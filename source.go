package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	"github.com/muesli/gitcha"

	"github.com/dgnsrekt/readalong/internal/markdown"
)

var (
	markdownExtensions = []string{"*.md", "*.mdown", "*.mkdn", "*.mkd", "*.markdown"}
	readmeNames        = []string{"README.md", "README", "Readme.md", "Readme", "readme.md", "readme"}

	httpClient = &http.Client{Timeout: 30 * time.Second}
)

// readSource returns the speakable text of arg and a title for it. arg is
// stdin ("" or "-"), an http(s) URL, a directory or a file. Markdown is
// reduced to plain text.
func readSource(arg string) (string, string, error) {
	var (
		r      io.Reader
		title  string
		isMark bool
	)

	switch {
	case arg == "" || arg == "-":
		r, title, isMark = os.Stdin, "stdin", true

	case isURL(arg):
		body, err := fetch(arg)
		if err != nil {
			return "", "", err
		}
		defer body.Close() //nolint:errcheck
		r, title, isMark = body, arg, true

	default:
		path := expandPath(arg)
		if st, err := os.Stat(path); err == nil && st.IsDir() {
			found, err := findMarkdown(path)
			if err != nil {
				return "", "", err
			}
			path = found
		}
		f, err := os.Open(path)
		if err != nil {
			return "", "", fmt.Errorf("unable to open file: %w", err)
		}
		defer f.Close() //nolint:errcheck
		r, title, isMark = f, filepath.Base(path), isMarkdownFile(path)
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return "", "", fmt.Errorf("unable to read from reader: %w", err)
	}

	text := string(b)
	if isMark {
		text = markdown.PlainText(text)
	}
	return text, title, nil
}

func isURL(arg string) bool {
	u, err := url.ParseRequestURI(arg)
	return err == nil && strings.Contains(arg, "://") && u.Scheme != ""
}

func fetch(rawURL string) (io.ReadCloser, error) {
	u, _ := url.ParseRequestURI(rawURL)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s is not a supported protocol", u.Scheme)
	}
	// consumer of the body is responsible for closing it
	resp, err := httpClient.Get(u.String()) //nolint:noctx,bodyclose
	if err != nil {
		return nil, fmt.Errorf("unable to get url: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// findMarkdown returns the README of dir, or the first markdown file found
// below it when there is none. Files ignored by git are skipped.
func findMarkdown(dir string) (string, error) {
	ch, err := gitcha.FindFilesExcept(dir, markdownExtensions, nil)
	if err != nil {
		return "", fmt.Errorf("unable to search %s: %w", dir, err)
	}

	var found []string
	for res := range ch {
		found = append(found, res.Path)
	}
	if len(found) == 0 {
		return "", errors.New("missing markdown source")
	}
	sort.Strings(found)

	for _, path := range found {
		for _, name := range readmeNames {
			if strings.EqualFold(filepath.Base(path), name) {
				return path, nil
			}
		}
	}
	log.Debug("no readme found, using first markdown file", "dir", dir, "file", found[0])
	return found[0], nil
}

func isMarkdownFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".mdown", ".mkdn", ".mkd", ".markdown":
		return true
	}
	return false
}

// expandPath expands a leading ~ and environment variables in path.
func expandPath(path string) string {
	s, err := homedir.Expand(path)
	if err == nil {
		return os.ExpandEnv(s)
	}
	return path
}
