/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/deepcogs/deepcogs/internal/analysis"
	"github.com/deepcogs/deepcogs/internal/discogs"
)

type Analysis struct {
	results      [][]string
	summary      string
	BodyOverride string
}

type Analyser interface {
	GetResults(releases []discogs.Release) (Analysis, error)

	GetName() string
}

func (a Analysis) String() string {
	out := new(bytes.Buffer)
	table := tablewriter.NewWriter(out)
	table.Header(a.results[0])
	for _, row := range a.results[1:] {
		if err := table.Append(row); err != nil {
			return fmt.Sprintf("Error rendering table: %v", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Sprintf("Error rendering table: %v", err)
	}
	fmt.Fprintf(out, "%s\n", a.summary)
	return out.String()
}

// nameCountAnalyser renders one of the DNA frequency tables.
type nameCountAnalyser struct {
	name   string
	header string
	pick   func(analysis.DNA) []analysis.NameCount
}

func (n nameCountAnalyser) GetName() string { return n.name }

func (n nameCountAnalyser) GetResults(releases []discogs.Release) (Analysis, error) {
	dna := analysis.Aggregate(releases)
	results := [][]string{{n.header, "Releases"}}
	for _, entry := range n.pick(dna) {
		results = append(results, []string{entry.Name, strconv.Itoa(entry.Count)})
	}
	return Analysis{
		results: results,
		summary: fmt.Sprintf("Across %d releases", dna.TotalReleases),
	}, nil
}

type OdditiesAnalyser struct{}

func (OdditiesAnalyser) GetName() string { return "Oddities" }

func (OdditiesAnalyser) GetResults(releases []discogs.Release) (Analysis, error) {
	dna := analysis.Aggregate(releases)
	results := [][]string{
		{"Oddity", "Releases"},
		{"Test pressings", strconv.Itoa(dna.Oddities.TestPressings)},
		{"Promos", strconv.Itoa(dna.Oddities.Promos)},
		{"Limited editions", strconv.Itoa(dna.Oddities.Limited)},
		{"Represses", strconv.Itoa(dna.Oddities.Represses)},
	}

	summary := fmt.Sprintf("%d releases, %d genres, %d labels",
		dna.TotalReleases, dna.UniqueGenres, dna.UniqueLabels)
	if dna.OldestYear > 0 {
		summary += fmt.Sprintf(", spanning %d to %d", dna.OldestYear, dna.NewestYear)
	}
	return Analysis{results: results, summary: summary}, nil
}

// DeepCutsAnalyser lists the rarest pressings in a collection.
type DeepCutsAnalyser struct {
	// Number of results to return, default 20.
	NumToReturn int
}

func (DeepCutsAnalyser) GetName() string { return "Deep cuts" }

func (d DeepCutsAnalyser) GetResults(releases []discogs.Release) (Analysis, error) {
	limit := d.NumToReturn
	if limit <= 0 {
		limit = 20
	}

	ranked := analysis.RankRarity(releases)
	results := [][]string{{"Score", "Title", "Year", "Why"}}
	for i, rare := range ranked {
		if i >= limit {
			break
		}
		year := ""
		if rare.Release.BasicInformation.Year > 0 {
			year = strconv.Itoa(rare.Release.BasicInformation.Year)
		}
		results = append(results, []string{
			strconv.Itoa(rare.Score),
			releaseTitle(rare.Release),
			year,
			strings.Join(rare.Factors, ", "),
		})
	}
	return Analysis{
		results: results,
		summary: fmt.Sprintf("%d of %d releases scored above zero", len(ranked), len(releases)),
	}, nil
}

// releaseTitle joins a release's artists with its title for display.
func releaseTitle(release discogs.Release) string {
	info := release.BasicInformation
	var artists []string
	for _, artist := range info.Artists {
		if artist.Name != "" {
			artists = append(artists, artist.Name)
		}
	}
	if len(artists) == 0 {
		return info.Title
	}
	return strings.Join(artists, ", ") + " - " + info.Title
}

func dnaAnalysers() []Analyser {
	return []Analyser{
		nameCountAnalyser{"Top genres", "Genre", func(d analysis.DNA) []analysis.NameCount { return d.TopGenres }},
		nameCountAnalyser{"Top styles", "Style", func(d analysis.DNA) []analysis.NameCount { return d.TopStyles }},
		nameCountAnalyser{"Top labels", "Label", func(d analysis.DNA) []analysis.NameCount { return d.TopLabels }},
		nameCountAnalyser{"Top formats", "Format", func(d analysis.DNA) []analysis.NameCount { return d.TopFormats }},
		nameCountAnalyser{"Decades", "Decade", func(d analysis.DNA) []analysis.NameCount { return d.Decades }},
		OdditiesAnalyser{},
	}
}
