package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/internal/query"
	"emergencyDashboard/pkg/e"
)

// Hit is a decoded search result with its relevance score.
type Hit struct {
	Document domain.Document
	Score    float64
}

// FindByType returns documents whose type equals t. NONE matches documents
// without a type.
func (s *Store) FindByType(ctx context.Context, t domain.IncidentType) ([]domain.Document, error) {
	const op = "search.Index.FindByType"

	hits, err := s.search(ctx, op, typeQuery(t), nil)
	if err != nil {
		return nil, err
	}
	return documents(hits), nil
}

// Execute runs a compiled query and returns documents in score order.
func (s *Store) Execute(ctx context.Context, q query.Query) ([]domain.Document, error) {
	const op = "search.Index.Execute"

	qs, err := Render(q)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("executing search", slog.String("op", op), slog.String("query", qs))

	hits, err := s.search(ctx, op, qs, sortArgs(q.Sort))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search hits", slog.String("op", op), slog.Int("count", len(hits)))
	return documents(hits), nil
}

func (s *Store) search(ctx context.Context, op, qs string, extra []string) ([]Hit, error) {
	args := []string{s.index, qs, "WITHSCORES"}
	args = append(args, extra...)
	args = append(args, "LIMIT", "0", strconv.Itoa(s.limit), "DIALECT", "2")

	cmd := s.b().Arbitrary(OpSearch).Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		s.logger.Error("search failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.Dependency(op, fmt.Errorf("%s: %w", OpSearch, err))
	}

	hits, err := parseHits(raw)
	if err != nil {
		s.logger.Error("decode hits failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.Dependency(op, err)
	}
	if extra == nil {
		sortByScore(hits)
	}
	return hits, nil
}

func typeQuery(t domain.IncidentType) string {
	if t != domain.IncidentTypeNone {
		return fmt.Sprintf("@%s:(%s)", fieldIncidentType, escapeQuery(t.Tag()))
	}
	tags := make([]string, 0, len(domain.IncidentTypes()))
	for _, it := range domain.IncidentTypes() {
		tags = append(tags, escapeQuery(it.Tag()))
	}
	return fmt.Sprintf("-@%s:(%s)", fieldIncidentType, strings.Join(tags, "|"))
}

// Render translates a compiled query into RediSearch query syntax. Filters are
// intersected; should-clauses are optional and only raise the score, unless
// there is no filter, in which case at least one of them has to match.
func Render(q query.Query) (string, error) {
	if q.MatchAll() {
		return "*", nil
	}

	parts := make([]string, 0, len(q.Filter)+1)
	for _, c := range q.Filter {
		p, err := renderClause(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}

	if len(q.Should) > 0 {
		should := make([]string, 0, len(q.Should))
		for _, c := range q.Should {
			p, err := renderClause(c)
			if err != nil {
				return "", err
			}
			should = append(should, p)
		}
		group := strings.Join(should, " | ")
		if len(q.Filter) > 0 {
			group = "~(" + group + ")"
		}
		parts = append(parts, group)
	}

	return strings.Join(parts, " "), nil
}

func renderClause(c query.Clause) (string, error) {
	switch c.Kind {
	case query.ClauseMatch:
		expr := fmt.Sprintf("(@%s:%s)", c.Field, escapeQuery(c.Value))
		if c.Boost != 0 && c.Boost != query.DefaultBoost {
			expr = fmt.Sprintf("(%s => { $weight: %s; })", expr, strconv.FormatFloat(c.Boost, 'f', 1, 64))
		}
		return expr, nil
	case query.ClauseGeoDistance:
		return fmt.Sprintf("@%s:[%s %s %s km]", c.Field,
			strconv.FormatFloat(c.Lon, 'f', -1, 64),
			strconv.FormatFloat(c.Lat, 'f', -1, 64),
			strconv.FormatFloat(c.RadiusKm, 'f', -1, 64)), nil
	case query.ClauseRange:
		field := c.Field
		lo, hi := "-inf", "+inf"
		if field == fieldTimestamp {
			// the text timestamp is range-searched through its numeric twin
			field = fieldTimestampMs
			if c.GTE != "" {
				ms, err := timestampMillis(c.GTE)
				if err != nil {
					return "", err
				}
				lo = strconv.FormatInt(ms, 10)
			}
			if c.LTE != "" {
				ms, err := timestampMillis(c.LTE)
				if err != nil {
					return "", err
				}
				hi = strconv.FormatInt(ms, 10)
			}
		} else {
			if c.GTE != "" {
				lo = c.GTE
			}
			if c.LTE != "" {
				hi = c.LTE
			}
		}
		return fmt.Sprintf("@%s:[%s %s]", field, lo, hi), nil
	default:
		return "", e.Invalid("unsupported clause kind %d", c.Kind)
	}
}

// sortArgs returns SORTBY arguments for anything other than the default
// relevance order. Only the first non-score field is honoured.
func sortArgs(fields []query.SortField) []string {
	for _, f := range fields {
		if f.Field == query.ScoreField {
			continue
		}
		name := f.Field
		if name == fieldTimestamp {
			name = fieldTimestampMs
		}
		order := "ASC"
		if f.Desc {
			order = "DESC"
		}
		return []string{"SORTBY", name, order}
	}
	return nil
}

// parseHits reads a WITHSCORES reply:
// [total, key1, score1, fields1, key2, score2, fields2, ...]
func parseHits(raw []rueidis.RedisMessage) ([]Hit, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	if (len(raw)-1)%3 != 0 {
		return nil, fmt.Errorf("malformed reply: %d elements after total", len(raw)-1)
	}

	hits := make([]Hit, 0, min(int(total), (len(raw)-1)/3))
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			return nil, fmt.Errorf("read key of hit %d: %w", (i-1)/3, err)
		}

		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			return nil, fmt.Errorf("read score of %s: %w", key, err)
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			return nil, fmt.Errorf("parse score of %s: %w", key, err)
		}

		fields, err := raw[i+2].ToArray()
		if err != nil {
			return nil, fmt.Errorf("read fields of %s: %w", key, err)
		}
		pairs, err := parseFieldPairs(fields)
		if err != nil {
			return nil, fmt.Errorf("read fields of %s: %w", key, err)
		}

		doc, err := decodeDocument(key, pairs)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		hits = append(hits, Hit{Document: doc, Score: score})
	}

	return hits, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) (map[string]string, error) {
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("odd number of field elements: %d", len(fields))
	}
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			return nil, err
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		m[name] = value
	}
	return m, nil
}

// sortByScore orders hits by descending score. Equal scores keep engine order.
func sortByScore(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}

func documents(hits []Hit) []domain.Document {
	out := make([]domain.Document, len(hits))
	for i, h := range hits {
		out[i] = h.Document
	}
	return out
}

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`,`, `\,`,
	`.`, `\.`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`:`, `\:`,
	`+`, `\+`,
	` `, `\ `,
)
