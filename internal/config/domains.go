package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DomainSets holds the curated domain allow-lists used by the Exa and Tavily
// strategy variants. The lists were curated by hand in the source system and
// are deliberately configuration, not code.
type DomainSets struct {
	NewsHeavy   []string `yaml:"news_heavy"`
	Mixed       []string `yaml:"mixed"`
	PharmaHeavy []string `yaml:"pharma_heavy"`
	ExaCurated  []string `yaml:"exa_curated"`
}

// DefaultDomainSets returns the built-in allow-lists, used when no domains
// file is configured.
func DefaultDomainSets() DomainSets {
	return DomainSets{
		NewsHeavy: []string{
			"reuters.com", "bloomberg.com", "wsj.com", "ft.com",
			"medicalnewstoday.com", "webmd.com", "medscape.com",
		},
		Mixed: []string{
			"reuters.com", "fiercepharma.com", "biopharmadive.com",
			"pharmatimes.com", "medicalnewstoday.com", "clinicaltrials.gov",
		},
		PharmaHeavy: []string{
			"fiercepharma.com", "biopharmadive.com", "pharmatimes.com",
			"pharmaceutical-technology.com", "drugdiscoverytoday.com",
			"fda.gov", "clinicaltrials.gov", "pubmed.ncbi.nlm.nih.gov",
		},
		ExaCurated: []string{
			"reuters.com", "bloomberg.com", "fiercepharma.com",
			"biopharmadive.com", "pharmatimes.com", "fda.gov",
			"clinicaltrials.gov", "pubmed.ncbi.nlm.nih.gov",
		},
	}
}

// LoadDomainSets reads the allow-lists from the configured file, falling
// back to the built-in defaults when no file is set. Lists present in the
// file replace the corresponding defaults wholesale.
func LoadDomainSets(cfg DomainsConfig) (DomainSets, error) {
	sets := DefaultDomainSets()
	if cfg.File == "" {
		return sets, nil
	}

	data, err := os.ReadFile(cfg.File)
	if err != nil {
		return sets, eris.Wrapf(err, "config: read domains file %s", cfg.File)
	}

	var loaded DomainSets
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return sets, eris.Wrapf(err, "config: parse domains file %s", cfg.File)
	}

	if len(loaded.NewsHeavy) > 0 {
		sets.NewsHeavy = loaded.NewsHeavy
	}
	if len(loaded.Mixed) > 0 {
		sets.Mixed = loaded.Mixed
	}
	if len(loaded.PharmaHeavy) > 0 {
		sets.PharmaHeavy = loaded.PharmaHeavy
	}
	if len(loaded.ExaCurated) > 0 {
		sets.ExaCurated = loaded.ExaCurated
	}

	return sets, nil
}
