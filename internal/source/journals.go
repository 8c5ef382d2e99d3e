// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"sort"
	"strings"
)

// Journal describes a journal the openalex adapter can query by ISSN.
type Journal struct {
	Code        string
	Name        string
	DisplayName string
	ISSNs       []string
}

// journals maps journal codes to their print and electronic ISSNs.
var journals = map[string]Journal{
	"prl":                     {Name: "Physical Review Letters", DisplayName: "PRL", ISSNs: []string{"0031-9007", "1079-7114"}},
	"pra":                     {Name: "Physical Review A", DisplayName: "PRA", ISSNs: []string{"2469-9926", "1050-2947"}},
	"prb":                     {Name: "Physical Review B", DisplayName: "PRB", ISSNs: []string{"2469-9950", "1098-0121"}},
	"prc":                     {Name: "Physical Review C", DisplayName: "PRC", ISSNs: []string{"2469-9985", "0556-2813"}},
	"prd":                     {Name: "Physical Review D", DisplayName: "PRD", ISSNs: []string{"2470-0010", "1550-7998"}},
	"pre":                     {Name: "Physical Review E", DisplayName: "PRE", ISSNs: []string{"2470-0045", "1539-3755"}},
	"prx":                     {Name: "Physical Review X", DisplayName: "PRX", ISSNs: []string{"2160-3308"}},
	"prxq":                    {Name: "PRX Quantum", DisplayName: "PRX Quantum", ISSNs: []string{"2691-3399"}},
	"rmp":                     {Name: "Reviews of Modern Physics", DisplayName: "RMP", ISSNs: []string{"0034-6861", "1539-0756"}},
	"nature":                  {Name: "Nature", DisplayName: "Nature", ISSNs: []string{"0028-0836", "1476-4687"}},
	"nature_physics":          {Name: "Nature Physics", DisplayName: "Nat. Phys.", ISSNs: []string{"1745-2473", "1745-2481"}},
	"nature_communications":   {Name: "Nature Communications", DisplayName: "Nat. Commun.", ISSNs: []string{"2041-1723"}},
	"science":                 {Name: "Science", DisplayName: "Science", ISSNs: []string{"0036-8075", "1095-9203"}},
	"science_advances":        {Name: "Science Advances", DisplayName: "Sci. Adv.", ISSNs: []string{"2375-2548"}},
	"npj_quantum_information": {Name: "npj Quantum Information", DisplayName: "npj QI", ISSNs: []string{"2056-6387"}},
	"quantum":                 {Name: "Quantum", DisplayName: "Quantum", ISSNs: []string{"2521-327X"}},
	"new_journal_of_physics":  {Name: "New Journal of Physics", DisplayName: "NJP", ISSNs: []string{"1367-2630"}},
}

// LookupJournal returns the journal registered under code (case-insensitive).
func LookupJournal(code string) (Journal, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	j, ok := journals[code]
	if ok {
		j.Code = code
	}
	return j, ok
}

// JournalCodes lists the known journal codes in lexical order.
func JournalCodes() []string {
	codes := make([]string, 0, len(journals))
	for c := range journals {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
