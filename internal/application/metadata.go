package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

// Reference-list models of the lookup endpoint.
const (
	modelVerticalVar   = "vervar"
	modelHorizontalVar = "turvar"
	modelYear          = "th"
	modelDerivedYear   = "turth"
)

// fieldMap maps provider field names onto VariableOption fields.
type fieldMap map[string]func(*model.VariableOption, string)

func setID(o *model.VariableOption, v string)        { o.ID = v }
func setLabel(o *model.VariableOption, v string)     { o.Label = v }
func setCode(o *model.VariableOption, v string)      { o.Code = v }
func setGroup(o *model.VariableOption, v string)     { o.Group = v }
func setGroupName(o *model.VariableOption, v string) { o.GroupName = v }

var referenceFields = map[string]fieldMap{
	modelVerticalVar: {
		"item_ver_id":       setID,
		"vervar":            setLabel,
		"kode_ver_id":       setCode,
		"group_ver_id":      setGroup,
		"name_group_ver_id": setGroupName,
	},
	modelHorizontalVar: {
		"turvar_id":         setID,
		"turvar":            setLabel,
		"group_turvar_id":   setGroup,
		"name_group_turvar": setGroupName,
	},
	modelYear: {
		"th_id": setID,
		"th":    setLabel,
	},
	modelDerivedYear: {
		"turth_id":         setID,
		"turth":            setLabel,
		"group_turth_id":   setGroup,
		"name_group_turth": setGroupName,
	},
}

// labelPolicy strips every tag; the provider embeds markup such as <sup> in labels.
var labelPolicy = bluemonday.StrictPolicy()

// MetadataAggregator assembles the four reference lists of a dynamic table.
type MetadataAggregator struct {
	invoker *Invoker
}

// NewMetadataAggregator creates a MetadataAggregator.
func NewMetadataAggregator(invoker *Invoker) *MetadataAggregator {
	return &MetadataAggregator{invoker: invoker}
}

// Fetch returns the reference lists of varID in domain. When the domain lacks
// any of the vertical, horizontal or year lists, the national domain is tried
// and its lists are used if they are complete. Incomplete metadata after that
// fails with MetadataUnavailable.
func (a *MetadataAggregator) Fetch(ctx context.Context, domain, varID string) (model.DynamicMetadata, error) {
	if !a.invoker.Ready() {
		return model.DynamicMetadata{}, model.NewError(model.KindCredentialMissing, "no BPS API token configured", nil)
	}

	md, err := a.fetchDomain(ctx, domain, varID)
	if err != nil {
		return model.DynamicMetadata{}, err
	}

	if !md.Complete() && domain != model.NationalDomainID {
		slog.Info("dynamic metadata incomplete, trying national domain",
			"domain", domain, "var", varID)

		fallback, err := a.fetchDomain(ctx, model.NationalDomainID, varID)
		if err != nil {
			return model.DynamicMetadata{}, err
		}
		if fallback.Complete() {
			fallback.SourceDomain = model.NationalDomainID
			md = fallback
		}
	}

	if !md.Complete() {
		return model.DynamicMetadata{}, model.NewError(model.KindMetadataUnavailable,
			fmt.Sprintf("no dynamic table metadata for var %s in domain %s", varID, domain), nil)
	}
	return md, nil
}

// fetchDomain issues the four lookups concurrently and waits for all of them.
func (a *MetadataAggregator) fetchDomain(ctx context.Context, domain, varID string) (model.DynamicMetadata, error) {
	models := []string{modelVerticalVar, modelHorizontalVar, modelYear, modelDerivedYear}
	lists := make([][]model.VariableOption, len(models))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range models {
		g.Go(func() error {
			resp, err := Invoke(gctx, a.invoker, "lookup_"+m, func(ctx context.Context, p driven.StatisticsProvider) (*driven.LookupResponse, error) {
				return p.Lookup(ctx, driven.LookupQuery{Model: m, Domain: domain, VarID: varID})
			})
			if err != nil {
				return fmt.Errorf("fetch %s for var %s in domain %s: %w", m, varID, domain, err)
			}
			lists[i] = extractOptions(resp, referenceFields[m])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.DynamicMetadata{}, err
	}

	return model.DynamicMetadata{
		VerticalVars:   lists[0],
		HorizontalVars: lists[1],
		Years:          lists[2],
		DerivedYears:   lists[3],
		SourceDomain:   domain,
	}, nil
}

// extractOptions maps a reference-list response onto options. Any response
// other than an available [meta, [items...]] pair yields an empty list.
func extractOptions(resp *driven.LookupResponse, fields fieldMap) []model.VariableOption {
	if !resp.Available() {
		return []model.VariableOption{}
	}

	var parts []json.RawMessage
	if err := gojson.Unmarshal(resp.Data, &parts); err != nil || len(parts) != 2 {
		return []model.VariableOption{}
	}

	var items []json.RawMessage
	if err := gojson.Unmarshal(parts[1], &items); err != nil {
		return []model.VariableOption{}
	}

	opts := make([]model.VariableOption, 0, len(items))
	for _, raw := range items {
		var item map[string]optionValue
		if err := gojson.Unmarshal(raw, &item); err != nil {
			continue
		}

		var opt model.VariableOption
		mapped := false
		for src, set := range fields {
			v, ok := item[src]
			if !ok {
				continue
			}
			set(&opt, string(v))
			mapped = true
		}
		if !mapped {
			continue
		}
		opt.Label = cleanLabel(opt.Label)
		opts = append(opts, opt)
	}
	return opts
}

// optionValue holds a reference-list field as text. Strings are kept as-is,
// numbers and booleans keep their JSON spelling and null becomes empty.
type optionValue string

func (v *optionValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*v = ""
	case b[0] == '"':
		var s string
		if err := gojson.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = optionValue(s)
	default:
		*v = optionValue(b)
	}
	return nil
}

// cleanLabel removes markup, decodes HTML entities and trims whitespace.
func cleanLabel(s string) string {
	return strings.TrimSpace(html.UnescapeString(labelPolicy.Sanitize(s)))
}
