// Package content stores the learning units whose words, sentences and texts
// are read aloud.
package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

// ErrUnitNotFound is returned for an unknown unit.
var ErrUnitNotFound = errors.New("unit not found")

// Kinds of content a unit holds.
const (
	KindWords     = "words"
	KindSentences = "sentences"
	KindTexts     = "texts"
)

// Unit groups content for one lesson.
type Unit struct {
	ID    int64
	Title string
}

// Word is a vocabulary entry.
type Word struct {
	ID      int64
	Term    string
	Meaning string
}

// Sentence is an example sentence.
type Sentence struct {
	ID          int64
	Text        string
	Translation string
}

// Text is a longer reading passage.
type Text struct {
	ID    int64
	Title string
	Body  string
}

// Reader is the read side used to feed the speech engine.
type Reader interface {
	Words(ctx context.Context, unitID int64) ([]Word, error)
	Sentences(ctx context.Context, unitID int64) ([]Sentence, error)
	Texts(ctx context.Context, unitID int64) ([]Text, error)
}

// UnitImport is a whole unit written in one transaction by ImportUnit.
type UnitImport struct {
	Title     string
	Words     []Word
	Sentences []Sentence
	Texts     []Text
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store is a SQLite-backed content store.
type Store struct {
	db  *sql.DB
	log *log.Logger
}

// Open opens or creates the store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, log: log.Default().WithPrefix("content")}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	s.log.Debug("content store opened", "path", path)
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS units (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS words (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    unit_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    term TEXT NOT NULL CHECK (term <> ''),
    meaning TEXT NOT NULL DEFAULT '',
    FOREIGN KEY(unit_id) REFERENCES units(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS sentences (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    unit_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    body TEXT NOT NULL CHECK (body <> ''),
    translation TEXT NOT NULL DEFAULT '',
    FOREIGN KEY(unit_id) REFERENCES units(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS texts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    unit_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL CHECK (body <> ''),
    FOREIGN KEY(unit_id) REFERENCES units(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_words_unit ON words(unit_id, position);
CREATE INDEX IF NOT EXISTS idx_sentences_unit ON sentences(unit_id, position);
CREATE INDEX IF NOT EXISTS idx_texts_unit ON texts(unit_id, position);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUnit adds a unit and returns its ID.
func (s *Store) CreateUnit(ctx context.Context, title string) (int64, error) {
	return createUnit(ctx, s.db, title)
}

func createUnit(ctx context.Context, ex execer, title string) (int64, error) {
	res, err := ex.ExecContext(ctx, `INSERT INTO units (title) VALUES (?)`, title)
	if err != nil {
		return 0, fmt.Errorf("insert unit: %w", err)
	}
	return res.LastInsertId()
}

// ImportUnit creates a unit with all of its content. Nothing is stored when
// any insert fails.
func (s *Store) ImportUnit(ctx context.Context, u UnitImport) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if id, err = createUnit(ctx, tx, u.Title); err != nil {
		return 0, err
	}
	for _, w := range u.Words {
		if _, err = addWord(ctx, tx, id, w.Term, w.Meaning); err != nil {
			return 0, fmt.Errorf("word %q: %w", w.Term, err)
		}
	}
	for _, st := range u.Sentences {
		if _, err = addSentence(ctx, tx, id, st.Text, st.Translation); err != nil {
			return 0, fmt.Errorf("sentence %q: %w", st.Text, err)
		}
	}
	for _, t := range u.Texts {
		if _, err = addText(ctx, tx, id, t.Title, t.Body); err != nil {
			return 0, fmt.Errorf("text %q: %w", t.Title, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	s.log.Debug("unit imported", "id", id, "words", len(u.Words), "sentences", len(u.Sentences), "texts", len(u.Texts))
	return id, nil
}

// Unit returns the unit with the given ID.
func (s *Store) Unit(ctx context.Context, id int64) (Unit, error) {
	u := Unit{ID: id}
	err := s.db.QueryRowContext(ctx, `SELECT title FROM units WHERE id = ?`, id).Scan(&u.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return u, fmt.Errorf("%w: %d", ErrUnitNotFound, id)
	}
	return u, err
}

// AddWord appends a word to a unit.
func (s *Store) AddWord(ctx context.Context, unitID int64, term, meaning string) (int64, error) {
	return addWord(ctx, s.db, unitID, term, meaning)
}

func addWord(ctx context.Context, ex execer, unitID int64, term, meaning string) (int64, error) {
	return insert(ctx, ex, `INSERT INTO words (unit_id, position, term, meaning)
		VALUES (?, (SELECT COUNT(*) FROM words WHERE unit_id = ?), ?, ?)`, unitID, unitID, term, meaning)
}

// AddSentence appends a sentence to a unit.
func (s *Store) AddSentence(ctx context.Context, unitID int64, body, translation string) (int64, error) {
	return addSentence(ctx, s.db, unitID, body, translation)
}

func addSentence(ctx context.Context, ex execer, unitID int64, body, translation string) (int64, error) {
	return insert(ctx, ex, `INSERT INTO sentences (unit_id, position, body, translation)
		VALUES (?, (SELECT COUNT(*) FROM sentences WHERE unit_id = ?), ?, ?)`, unitID, unitID, body, translation)
}

// AddText appends a reading passage to a unit.
func (s *Store) AddText(ctx context.Context, unitID int64, title, body string) (int64, error) {
	return addText(ctx, s.db, unitID, title, body)
}

func addText(ctx context.Context, ex execer, unitID int64, title, body string) (int64, error) {
	return insert(ctx, ex, `INSERT INTO texts (unit_id, position, title, body)
		VALUES (?, (SELECT COUNT(*) FROM texts WHERE unit_id = ?), ?, ?)`, unitID, unitID, title, body)
}

func insert(ctx context.Context, ex execer, query string, args ...any) (int64, error) {
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	return res.LastInsertId()
}

// Words returns the words of a unit in order.
func (s *Store) Words(ctx context.Context, unitID int64) ([]Word, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, term, meaning FROM words WHERE unit_id = ? ORDER BY position`, unitID)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	var out []Word
	for rows.Next() {
		var w Word
		if err := rows.Scan(&w.ID, &w.Term, &w.Meaning); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Sentences returns the sentences of a unit in order.
func (s *Store) Sentences(ctx context.Context, unitID int64) ([]Sentence, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, body, translation FROM sentences WHERE unit_id = ? ORDER BY position`, unitID)
	if err != nil {
		return nil, fmt.Errorf("query sentences: %w", err)
	}
	defer rows.Close()

	var out []Sentence
	for rows.Next() {
		var st Sentence
		if err := rows.Scan(&st.ID, &st.Text, &st.Translation); err != nil {
			return nil, fmt.Errorf("scan sentence: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Texts returns the reading passages of a unit in order.
func (s *Store) Texts(ctx context.Context, unitID int64) ([]Text, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, body FROM texts WHERE unit_id = ? ORDER BY position`, unitID)
	if err != nil {
		return nil, fmt.Errorf("query texts: %w", err)
	}
	defer rows.Close()

	var out []Text
	for rows.Next() {
		var t Text
		if err := rows.Scan(&t.ID, &t.Title, &t.Body); err != nil {
			return nil, fmt.Errorf("scan text: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Speakable returns the texts of one kind of content of a unit, in order,
// ready to be spoken.
func Speakable(ctx context.Context, r Reader, unitID int64, kind string) ([]string, error) {
	var out []string
	switch kind {
	case KindWords:
		words, err := r.Words(ctx, unitID)
		if err != nil {
			return nil, err
		}
		for _, w := range words {
			out = append(out, w.Term)
		}
	case KindSentences:
		sentences, err := r.Sentences(ctx, unitID)
		if err != nil {
			return nil, err
		}
		for _, s := range sentences {
			out = append(out, s.Text)
		}
	case KindTexts:
		texts, err := r.Texts(ctx, unitID)
		if err != nil {
			return nil, err
		}
		for _, t := range texts {
			out = append(out, t.Body)
		}
	default:
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}
	return out, nil
}

var _ Reader = (*Store)(nil)
