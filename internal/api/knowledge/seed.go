package knowledge

import (
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

//go:embed seed_corpus.yaml
var seedCorpusYAML []byte

type SeedDocument struct {
	Title    string `yaml:"title"`
	Category string `yaml:"category"`
	Content  string `yaml:"content"`
}

type seedCorpus struct {
	Documents []SeedDocument `yaml:"documents"`
}

// LoadSeedCorpus parses the embedded Hong Kong tourism corpus.
func LoadSeedCorpus() ([]SeedDocument, error) {
	return parseSeedCorpus(seedCorpusYAML)
}

func parseSeedCorpus(raw []byte) ([]SeedDocument, error) {
	var c seedCorpus
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse seed corpus: %w", err)
	}
	for i, d := range c.Documents {
		if d.Title == "" || d.Content == "" {
			return nil, fmt.Errorf("seed document %d is missing a title or content", i)
		}
	}
	return c.Documents, nil
}

func (d SeedDocument) metadata() map[string]any {
	m := map[string]any{"title": d.Title}
	if d.Category != "" {
		m["category"] = d.Category
	}
	return m
}

func (d SeedDocument) document() types.Document {
	return types.Document{
		ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte("hk-tourism:"+d.Title)),
		Title:    d.Title,
		Content:  d.Content,
		Metadata: d.metadata(),
	}
}

// genericDocument is returned when no other knowledge is available.
func genericDocument() types.Document {
	return types.Document{
		Title:    "Hong Kong Tourism",
		Content:  "Hong Kong is a vibrant city with many attractions including Victoria Peak, Star Ferry, Temple Street Night Market, and excellent dim sum restaurants. It's known for its skyline, harbor views, and unique blend of Eastern and Western cultures.",
		Metadata: map[string]any{"title": "Hong Kong Tourism"},
	}
}
