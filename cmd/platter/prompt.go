package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"platter/internal/importer"
	"platter/internal/library"
	"platter/internal/queue"
	"platter/internal/stage"
)

// promptProvider asks the user for match decisions and duplicate resolutions
// on the terminal. Reaching end of input leaves the task parked.
type promptProvider struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptProvider(in io.Reader, out io.Writer) *promptProvider {
	return &promptProvider{in: bufio.NewReader(in), out: out}
}

func (p *promptProvider) Decide(ctx context.Context, item *queue.Item, set stage.CandidateSet) (importer.Decision, error) {
	fmt.Fprintf(p.out, "\n%s\n", item.UnitTitle)
	if len(set.Candidates) == 0 {
		fmt.Fprintln(p.out, "No candidates found.")
	} else {
		fmt.Fprintln(p.out, renderCandidateTable(set))
	}
	fmt.Fprintf(p.out, "Recommendation: %s\n", valueOr(set.Recommendation, "none"))
	fmt.Fprintln(p.out, "[Enter] accept best  [#] accept candidate  [u] as-is  [t] singletons")
	fmt.Fprintln(p.out, "[e] new search  [i] release id  [s] skip  [b] abort")

	for {
		fmt.Fprint(p.out, "> ")
		line, err := p.in.ReadString('\n')
		if err != nil {
			return importer.Decision{}, importer.ErrNoDecision
		}
		decision, ok := p.parseDecision(strings.TrimSpace(line), len(set.Candidates))
		if !ok {
			fmt.Fprintln(p.out, "Unrecognized choice.")
			continue
		}
		return decision, nil
	}
}

func (p *promptProvider) parseDecision(input string, candidates int) (importer.Decision, bool) {
	switch strings.ToLower(input) {
	case "", "a":
		if candidates == 0 {
			return importer.Decision{}, false
		}
		return importer.Decision{Action: importer.ActionAcceptBest}, true
	case "u":
		return importer.Decision{Action: importer.ActionAsIs}, true
	case "t":
		return importer.Decision{Action: importer.ActionSingletons}, true
	case "s":
		return importer.Decision{Action: importer.ActionSkip}, true
	case "b":
		return importer.Decision{Action: importer.ActionAbort}, true
	case "e":
		artist := p.ask("Artist: ")
		album := p.ask("Album: ")
		return importer.Decision{Action: importer.ActionNewSearch, Artist: artist, Album: album}, true
	case "i":
		id := p.ask("Release ID: ")
		if id == "" {
			return importer.Decision{}, false
		}
		return importer.Decision{Action: importer.ActionReleaseID, ReleaseID: id}, true
	}

	number, err := strconv.Atoi(input)
	if err != nil || number < 1 || number > candidates {
		return importer.Decision{}, false
	}
	return importer.Decision{Action: importer.ActionAcceptCandidate, CandidateIndex: number - 1}, true
}

func (p *promptProvider) ResolveDuplicate(ctx context.Context, item *queue.Item, set library.DuplicateSet) (library.Resolution, error) {
	fmt.Fprintf(p.out, "\n%s conflicts with %d existing catalog entries:\n", item.UnitTitle, len(set.Entries))
	for _, entry := range set.Entries {
		fmt.Fprintf(p.out, "  %s - %s (%s)\n", entry.Artist, entry.Album, valueOr(entry.Path, "path unknown"))
	}
	fmt.Fprintln(p.out, "[s] skip  [r] replace  [m] merge  [k] keep both")

	for {
		fmt.Fprint(p.out, "> ")
		line, err := p.in.ReadString('\n')
		if err != nil {
			return "", importer.ErrNoDecision
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "s":
			return library.ResolutionSkip, nil
		case "r":
			return library.ResolutionReplace, nil
		case "m":
			return library.ResolutionMerge, nil
		case "k":
			return library.ResolutionKeepBoth, nil
		default:
			fmt.Fprintln(p.out, "Unrecognized choice.")
		}
	}
}

func (p *promptProvider) ask(prompt string) string {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func renderCandidateTable(set stage.CandidateSet) string {
	rows := make([][]string, 0, len(set.Candidates))
	for i, candidate := range set.Candidates {
		release := candidate.Release
		if release == nil {
			continue
		}
		year := ""
		if release.Year > 0 {
			year = strconv.Itoa(release.Year)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			release.Artist,
			release.Title,
			year,
			strconv.Itoa(len(release.Tracks)),
			fmt.Sprintf("%.3f", candidate.Total),
		})
	}
	return renderTable(
		[]string{"#", "Artist", "Album", "Year", "Tracks", "Distance"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
