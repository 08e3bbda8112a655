package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/readalong/internal/content"
)

var (
	unitKind string
	dbPath   string

	unitCmd = &cobra.Command{
		Use:   "unit ID",
		Short: "Read the content of a learning unit aloud",
		Long: paragraph(fmt.Sprintf("\nRead the %s, sentences or texts of a stored unit aloud, in order.",
			keyword("words"))),
		Example: paragraph("readalong unit 3\nreadalong unit 3 --kind sentences\nreadalong unit import lesson.yml"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid unit id %q: %w", args[0], err)
			}

			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			unit, err := store.Unit(cmd.Context(), id)
			if err != nil {
				return err
			}
			items, err := content.Speakable(cmd.Context(), store, id, unitKind)
			if err != nil {
				return err
			}
			return speakText(cmd, joinSentences(items), unit.Title)
		},
	}

	unitImportCmd = &cobra.Command{
		Use:     "import FILE",
		Short:   "Import a unit from a yaml file",
		Example: paragraph("readalong unit import lesson.yml"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("unable to read file: %w", err)
			}
			var file unitFile
			if err := yaml.Unmarshal(b, &file); err != nil {
				return fmt.Errorf("unable to parse unit: %w", err)
			}

			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			id, err := importUnit(cmd.Context(), store, file)
			if err != nil {
				return err
			}
			fmt.Println("Imported unit", keyword(strconv.FormatInt(id, 10)))
			return nil
		},
	}
)

// unitFile is the yaml layout accepted by unit import.
type unitFile struct {
	Title string `yaml:"title"`
	Words []struct {
		Term    string `yaml:"term"`
		Meaning string `yaml:"meaning"`
	} `yaml:"words"`
	Sentences []struct {
		Text        string `yaml:"text"`
		Translation string `yaml:"translation"`
	} `yaml:"sentences"`
	Texts []struct {
		Title string `yaml:"title"`
		Body  string `yaml:"body"`
	} `yaml:"texts"`
}

func importUnit(ctx context.Context, store *content.Store, file unitFile) (int64, error) {
	u := content.UnitImport{Title: file.Title}
	for _, w := range file.Words {
		u.Words = append(u.Words, content.Word{Term: w.Term, Meaning: w.Meaning})
	}
	for _, s := range file.Sentences {
		u.Sentences = append(u.Sentences, content.Sentence{Text: s.Text, Translation: s.Translation})
	}
	for _, t := range file.Texts {
		u.Texts = append(u.Texts, content.Text{Title: t.Title, Body: t.Body})
	}
	return store.ImportUnit(ctx, u)
}

func openStore(ctx context.Context) (*content.Store, error) {
	path := viper.GetString("db")
	if dbPath != "" {
		path = dbPath
	}
	path = expandPath(path)
	if path == "" {
		var err error
		path, err = gap.NewScope(gap.User, "readalong").DataPath("readalong.db")
		if err != nil {
			return nil, fmt.Errorf("unable to find data directory: %w", err)
		}
	}
	return content.Open(ctx, path)
}

// joinSentences joins items into one text, ending each item as a sentence
// so that it is spoken on its own.
func joinSentences(items []string) string {
	var b strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(item)
		if r, _ := utf8.DecodeLastRuneInString(item); !strings.ContainsRune(".!?…。！？", r) {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func init() {
	unitCmd.Flags().StringVarP(&unitKind, "kind", "k", content.KindWords, "content to read: words, sentences or texts")
	unitCmd.PersistentFlags().StringVar(&dbPath, "db", "", "content database (default in the user data directory)")
	unitCmd.AddCommand(unitImportCmd)
}
