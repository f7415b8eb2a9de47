/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const defaultTimeLimit = 20

const (
	kindMultipleChoice = "multiple-choice"
	kindTrueFalse      = "true-false"
)

// Question is a single entry from the question file. Options are 1-indexed
// on the wire, so Correct is 1-based as well.
type Question struct {
	Text      string
	Kind      string
	Options   []string
	Correct   int
	TimeLimit int
}

// loadQuestions parses the delimited question file. Each record is
//
//	kind,text,timeLimit,correctIndex,option1,...,optionN
//
// with '#' starting a comment line. Records with fewer than 2 or more than
// 4 options are skipped rather than failing the whole file; true-false
// records may omit their options entirely.
func loadQuestions(cfg *Config, path string) ([]Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	questions := make([]Question, 0, len(records))

	for i, record := range records {
		if len(record) < 4 {
			logf(cfg, "QUESTIONS: Skipping record %d (expected at least 4 fields, got %d)", i+1, len(record))
			continue
		}

		q := Question{
			Kind: strings.TrimSpace(record[0]),
			Text: strings.TrimSpace(record[1]),
		}

		if q.Text == "" || (q.Kind != kindMultipleChoice && q.Kind != kindTrueFalse) {
			logf(cfg, "QUESTIONS: Skipping record %d (bad kind %q or empty text)", i+1, record[0])
			continue
		}

		q.TimeLimit, err = strconv.Atoi(strings.TrimSpace(record[2]))
		if err != nil || q.TimeLimit < 1 {
			q.TimeLimit = defaultTimeLimit
		}

		q.Correct, err = strconv.Atoi(strings.TrimSpace(record[3]))
		if err != nil {
			logf(cfg, "QUESTIONS: Skipping record %d (bad correct index %q)", i+1, record[3])
			continue
		}

		for _, opt := range record[4:] {
			q.Options = append(q.Options, strings.TrimSpace(opt))
		}

		if q.Kind == kindTrueFalse && len(q.Options) == 0 {
			q.Options = []string{"True", "False"}
		}

		if len(q.Options) < 2 || len(q.Options) > 4 {
			logf(cfg, "QUESTIONS: Skipping record %d (need 2-4 options, got %d)", i+1, len(q.Options))
			continue
		}

		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("no usable questions in %s", path)
	}

	return questions, nil
}

// QuestionSource holds the most recently loaded question list. Sessions
// take a snapshot at reset time; a reload never mutates a running session.
type QuestionSource struct {
	mu        sync.RWMutex
	path      string
	questions []Question
}

func newQuestionSource(cfg *Config, path string) (*QuestionSource, error) {
	questions, err := loadQuestions(cfg, path)
	if err != nil {
		return nil, err
	}

	return &QuestionSource{
		path:      path,
		questions: questions,
	}, nil
}

// Snapshot returns a copy of the current question list.
func (s *QuestionSource) Snapshot() []Question {
	s.mu.RLock()
	defer s.mu.RUnlock()

	questions := make([]Question, len(s.questions))
	copy(questions, s.questions)

	return questions
}

func (s *QuestionSource) reload(cfg *Config) {
	questions, err := loadQuestions(cfg, s.path)
	if err != nil {
		logf(cfg, "QUESTIONS: Reload failed, keeping previous set: %v", err)
		return
	}

	s.mu.Lock()
	s.questions = questions
	s.mu.Unlock()

	logf(cfg, "QUESTIONS: Reloaded %d questions from %s", len(questions), s.path)
}

// watch reloads the question file whenever it changes on disk. Editors
// often replace rather than rewrite files, so the parent directory is
// watched and events are filtered by name.
func (s *QuestionSource) watch(cfg *Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					s.reload(cfg)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logf(cfg, "QUESTIONS: Watcher error: %v", err)
			}
		}
	}()

	return nil
}
