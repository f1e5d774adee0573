package analyzer

import (
	"sort"
	"strings"
)

// Topic is a named keyword list. A document matches when its text contains any keyword.
type Topic struct {
	Name     string
	Keywords []string
}

// DefaultTopics returns the built-in topics.
func DefaultTopics() []Topic {
	return []Topic{
		{Name: "economia", Keywords: []string{"economía", "económico", "colcap", "bvc", "inflación", "dólar", "tasas"}},
		{Name: "seguridad", Keywords: []string{
			"sicario", "asesinato", "homicidio", "violencia", "incidente",
			"capturado", "paro armado", "eln", "ataque", "explosión",
		}},
		{Name: "politica", Keywords: []string{"gobierno", "ministro", "presidente", "congreso", "alcalde", "elecciones", "política"}},
		{Name: "salud", Keywords: []string{"salud", "hospital", "covid", "enfermedad", "clínica", "medicina"}},
	}
}

// TopicsFromConfig builds topics from a name → keywords map, sorted by name.
// An empty map yields DefaultTopics. Keywords are lowercased.
func TopicsFromConfig(cfg map[string][]string) []Topic {
	if len(cfg) == 0 {
		return DefaultTopics()
	}

	topics := make([]Topic, 0, len(cfg))

	for name, words := range cfg {
		keywords := make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				keywords = append(keywords, w)
			}
		}

		topics = append(topics, Topic{Name: name, Keywords: keywords})
	}

	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })

	return topics
}

// TopicNames lists the names of topics in order.
func TopicNames(topics []Topic) []string {
	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = t.Name
	}

	return names
}

// Matches reports whether lowered text contains any of the topic's keywords.
func (t Topic) Matches(lowered string) bool {
	for _, k := range t.Keywords {
		if strings.Contains(lowered, k) {
			return true
		}
	}

	return false
}
