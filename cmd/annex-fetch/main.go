// annex-fetch downloads a regulatory web page and extracts its first
// HTML table as CSV, ready for regula-import. Useful for annex pages
// published as HTML without a CSV export.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html"
)

func main() {
	var (
		url     = flag.String("url", "", "Page URL to fetch (required)")
		out     = flag.String("out", "", "Output CSV path; defaults to stdout")
		timeout = flag.Duration("timeout", 30*time.Second, "HTTP timeout")
	)
	flag.Parse()

	if *url == "" {
		log.Fatal("--url required")
	}

	client := &http.Client{Timeout: *timeout}
	resp, err := client.Get(*url)
	if err != nil {
		log.Fatalf("fetch %s: %v", *url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("fetch %s: status %s", *url, resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		log.Fatalf("parse html: %v", err)
	}

	table := findTable(doc)
	if table == nil {
		log.Fatal("no table found in page")
	}

	rows := extractRows(table)
	if len(rows) == 0 {
		log.Fatal("table contains no rows")
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("create %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}

	for _, row := range rows {
		fmt.Fprintln(w, toCSVLine(row))
	}

	log.Printf("wrote %d rows (including header)", len(rows))
}

// findTable returns the first <table> element in document order.
func findTable(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "table" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTable(c); t != nil {
			return t
		}
	}
	return nil
}

// extractRows walks <tr> elements and collects their cell texts.
// Header cells (<th>) and data cells (<td>) are treated alike.
func extractRows(table *html.Node) [][]string {
	var rows [][]string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, cellText(c))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)

	return rows
}

// cellText flattens a cell's text content, collapsing whitespace.
func cellText(n *html.Node) string {
	var b strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(b.String()), " ")
}

// toCSVLine joins cells, quoting any cell containing a comma, quote or
// leading/trailing space. Quotes are escaped by doubling.
func toCSVLine(cells []string) string {
	quoted := make([]string, len(cells))
	for i, c := range cells {
		if strings.ContainsAny(c, `",`) || strings.TrimSpace(c) != c {
			quoted[i] = `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
		} else {
			quoted[i] = c
		}
	}
	return strings.Join(quoted, ",")
}
