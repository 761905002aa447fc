package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/publicsuffix"

	"github.com/shouni/go-lighthouse-check/pkg/types"
)

// 出力形式
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Formats はサポートしている出力形式の一覧です。
var Formats = []string{FormatText, FormatJSON, FormatCSV}

// entry は JSON 出力用の1件分の表現です。
type entry struct {
	Label             string       `json:"label,omitempty"`
	URL               string       `json:"url"`
	FinalURL          string       `json:"finalUrl,omitempty"`
	FormFactor        string       `json:"formFactor,omitempty"`
	LighthouseVersion string       `json:"lighthouseVersion,omitempty"`
	FetchTime         string       `json:"fetchTime,omitempty"`
	Scores            types.Scores `json:"scores"`
	LocalReport       string       `json:"localReport,omitempty"`
	Error             string       `json:"error,omitempty"`
}

// DomainSummary は登録可能ドメインごとの集計です。
type DomainSummary struct {
	Domain  string
	Targets int
	Failed  int
	// Average はカテゴリごとの平均スコアです (スコアのある結果のみで計算)。
	Average map[string]float64
}

// Write は results を指定形式で w に書き出します。
func Write(w io.Writer, format string, results []types.AuditResult) error {
	switch format {
	case "", FormatText:
		return writeText(w, results)
	case FormatJSON:
		return writeJSON(w, results)
	case FormatCSV:
		return writeCSV(w, results)
	default:
		return fmt.Errorf("不明な出力形式です: %s (%s のいずれかを指定してください)", format, strings.Join(Formats, ", "))
	}
}

func writeJSON(w io.Writer, results []types.AuditResult) error {
	entries := make([]entry, len(results))
	for i, res := range results {
		e := entry{
			Label:             res.Label,
			URL:               res.URL,
			FinalURL:          res.FinalURL,
			FormFactor:        res.FormFactor,
			LighthouseVersion: res.LighthouseVersion,
			Scores:            res.Scores,
			LocalReport:       res.ReportPath,
			Error:             res.FailureMessage(),
		}
		if e.Scores == nil {
			e.Scores = types.Scores{}
		}
		if !res.FetchTime.IsZero() {
			e.FetchTime = res.FetchTime.UTC().Format(time.RFC3339)
		}
		entries[i] = e
	}

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("JSONへの変換に失敗しました: %w", err)
	}
	if _, err := w.Write(append(out, '\n')); err != nil {
		return fmt.Errorf("JSONの書き込みに失敗しました: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, results []types.AuditResult) error {
	writer := csv.NewWriter(w)

	headers := append([]string{"Label", "URL"}, types.Categories...)
	headers = append(headers, "Report", "Error")
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("CSVの書き込みに失敗しました: %w", err)
	}

	for _, res := range results {
		row := []string{res.Label, res.URL}
		row = append(row, scoreCells(res.Scores)...)
		row = append(row, res.ReportPath, res.FailureMessage())
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("CSVの書き込みに失敗しました: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeText(w io.Writer, results []types.AuditResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "--- Lighthouse 監査結果 ---")
	header := append([]string{"", "TARGET"}, types.Categories...)
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	successCount := 0
	for _, res := range results {
		mark := "✅"
		if res.Failed() {
			mark = "❌"
		} else {
			successCount++
		}
		row := append([]string{mark, displayName(res)}, scoreCells(res.Scores)...)
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, res := range results {
		if res.Failed() {
			fmt.Fprintf(w, "エラー (%s): %s\n", displayName(res), res.FailureMessage())
		}
	}
	for _, res := range results {
		if res.ReportPath != "" {
			fmt.Fprintf(w, "レポート (%s): %s\n", displayName(res), res.ReportPath)
		}
	}

	summaries := Summarize(results)
	if len(summaries) > 1 {
		fmt.Fprintln(w, "--- ドメイン別 ---")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s: %d 件 (失敗 %d 件)", s.Domain, s.Targets, s.Failed)
			if avg, ok := s.Average[types.CategoryPerformance]; ok {
				fmt.Fprintf(w, ", performance 平均 %.1f", avg)
			}
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w, "-------------------------------")
	_, err := fmt.Fprintf(w, "完了: 成功 %d 件, 失敗 %d 件\n", successCount, len(results)-successCount)
	return err
}

// Summarize は結果を登録可能ドメイン (eTLD+1) ごとに集計し、ドメイン名順に返します。
func Summarize(results []types.AuditResult) []DomainSummary {
	byDomain := map[string]*DomainSummary{}
	sums := map[string]map[string]int{}
	counts := map[string]map[string]int{}

	for _, res := range results {
		domain := registrableDomain(res.URL)
		s, ok := byDomain[domain]
		if !ok {
			s = &DomainSummary{Domain: domain, Average: map[string]float64{}}
			byDomain[domain] = s
			sums[domain] = map[string]int{}
			counts[domain] = map[string]int{}
		}
		s.Targets++
		if res.Failed() {
			s.Failed++
		}
		for category, score := range res.Scores {
			sums[domain][category] += score
			counts[domain][category]++
		}
	}

	summaries := make([]DomainSummary, 0, len(byDomain))
	for domain, s := range byDomain {
		for category, total := range sums[domain] {
			s.Average[category] = float64(total) / float64(counts[domain][category])
		}
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Domain < summaries[j].Domain })
	return summaries
}

func registrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// localhost など
		return host
	}
	return domain
}

func scoreCells(scores types.Scores) []string {
	cells := make([]string, len(types.Categories))
	for i, category := range types.Categories {
		if score, ok := scores[category]; ok {
			cells[i] = strconv.Itoa(score)
		} else {
			cells[i] = "-"
		}
	}
	return cells
}

func displayName(res types.AuditResult) string {
	if res.Label != "" {
		return res.Label + " (" + res.URL + ")"
	}
	return res.URL
}
