package main

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/TimeCyber/DeepManus/core/protocol"
)

// printer writes events as JSON lines, or tallies them for a summary
// table when summary is set.
type printer struct {
	out     io.Writer
	summary bool
	enc     *json.Encoder
	counts  map[protocol.EventType]int
	order   []protocol.EventType
}

func newPrinter(out io.Writer, summary bool) *printer {
	return &printer{
		out:     out,
		summary: summary,
		enc:     json.NewEncoder(out),
		counts:  make(map[protocol.EventType]int),
	}
}

func (p *printer) print(ev protocol.Event) error {
	if _, seen := p.counts[ev.Type]; !seen {
		p.order = append(p.order, ev.Type)
	}
	p.counts[ev.Type]++

	if p.summary {
		return nil
	}
	return p.enc.Encode(ev)
}

func (p *printer) flush() error {
	if !p.summary {
		return nil
	}

	table := tablewriter.NewWriter(p.out)
	table.Header("Event", "Count")
	total := 0
	for _, t := range p.order {
		table.Append([]string{string(t), strconv.Itoa(p.counts[t])})
		total += p.counts[t]
	}
	table.Append([]string{"total", strconv.Itoa(total)})
	return table.Render()
}
