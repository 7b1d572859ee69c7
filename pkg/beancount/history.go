package beancount

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

const (
	// fuzzyCutoff is the minimum similarity for a fuzzy key match.
	fuzzyCutoff = 0.8
	// fuzzyLimit caps how many fuzzy candidates are considered.
	fuzzyLimit = 3
	// defaultHistoryLimit is the default number of summary lines.
	defaultHistoryLimit = 25
)

// AccountPair is a (ledger-side, counterparty) account combination observed
// in a historical transaction. Ledger-side means the account name starts
// with Assets or Liabilities.
type AccountPair struct {
	Ledger  string
	Counter string
}

// HistoryRecord aggregates the transactions sharing one normalized
// description: how often each account pair occurred, the most recent date,
// and the description text as last seen.
type HistoryRecord struct {
	Description string
	LastDate    string // YYYY-MM-DD, empty when unknown
	PairCounts  map[AccountPair]int
	Seen        int
}

// HistoryRecords mines the user's full ledger into a map keyed by
// normalized description. The index is rebuilt on every call; nothing is
// persisted between queries.
func (s *Service) HistoryRecords(userID string) (map[string]*HistoryRecord, error) {
	file, err := loadFile(s.store.UserLedgerPath(userID))
	if err != nil {
		return nil, err
	}

	records := make(map[string]*HistoryRecord)
	for _, txn := range file.Transactions {
		if len(txn.Postings) < 2 {
			continue
		}
		description := strings.TrimSpace(txn.Description())
		if description == "" {
			continue
		}

		pair, ok := representativePair(txn.Postings)
		if !ok {
			continue
		}

		key := NormalizeDescription(description)
		record, exists := records[key]
		if !exists {
			record = &HistoryRecord{Description: description, PairCounts: make(map[AccountPair]int)}
			records[key] = record
		}
		record.PairCounts[pair]++
		record.Seen++
		if txn.Date >= record.LastDate {
			record.LastDate = txn.Date
			record.Description = description
		}
	}
	return records, nil
}

// representativePair picks the first ledger-side and first counterparty
// account of a transaction. Transactions with more than two postings are
// deliberately not paired exhaustively.
func representativePair(postings []Posting) (AccountPair, bool) {
	var pair AccountPair
	for _, posting := range postings {
		if posting.Account == "" {
			continue
		}
		if isLedgerSide(posting.Account) {
			if pair.Ledger == "" {
				pair.Ledger = posting.Account
			}
		} else if pair.Counter == "" {
			pair.Counter = posting.Account
		}
	}
	if pair.Ledger == "" || pair.Counter == "" {
		return AccountPair{}, false
	}
	return pair, true
}

func isLedgerSide(account string) bool {
	return strings.HasPrefix(account, "Assets") || strings.HasPrefix(account, "Liabilities")
}

// NormalizeDescription lowercases, collapses internal whitespace runs, and
// trims a transaction description for use as a history key.
func NormalizeDescription(description string) string {
	return strings.Join(strings.Fields(strings.ToLower(description)), " ")
}

// matchKeys resolves a normalized query against the candidate keys using a
// tie-break cascade: an exact match wins outright, then substring matches
// in either direction in candidate order, then up to fuzzyLimit fuzzy
// matches at fuzzyCutoff similarity.
func matchKeys(query string, candidates []string) []string {
	for _, key := range candidates {
		if key == query {
			return []string{key}
		}
	}

	var substrings []string
	for _, key := range candidates {
		if strings.Contains(query, key) || strings.Contains(key, query) {
			substrings = append(substrings, key)
		}
	}
	if len(substrings) > 0 {
		return substrings
	}

	type scored struct {
		key   string
		score float64
	}
	var fuzzy []scored
	for _, key := range candidates {
		if score := similarity(query, key); score >= fuzzyCutoff {
			fuzzy = append(fuzzy, scored{key: key, score: score})
		}
	}
	sort.SliceStable(fuzzy, func(i, j int) bool { return fuzzy[i].score > fuzzy[j].score })
	if len(fuzzy) > fuzzyLimit {
		fuzzy = fuzzy[:fuzzyLimit]
	}
	keys := make([]string, len(fuzzy))
	for i, match := range fuzzy {
		keys[i] = match.key
	}
	return keys
}

// similarity maps edit distance onto a 0..1 ratio comparable with the
// fuzzy cutoff.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}

// selectTopPair returns the record's most frequent pair and its count.
// When preferredLedger names the ledger-side leg of at least one pair, the
// most frequent such pair wins even over a globally more frequent pair
// with a different ledger-side leg.
func selectTopPair(record *HistoryRecord, preferredLedger string) (AccountPair, int) {
	if record == nil || len(record.PairCounts) == 0 {
		return AccountPair{}, 0
	}

	pairs := make([]AccountPair, 0, len(record.PairCounts))
	for pair := range record.PairCounts {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		ci, cj := record.PairCounts[pairs[i]], record.PairCounts[pairs[j]]
		if ci != cj {
			return ci > cj
		}
		if pairs[i].Ledger != pairs[j].Ledger {
			return pairs[i].Ledger < pairs[j].Ledger
		}
		return pairs[i].Counter < pairs[j].Counter
	})

	if preferredLedger != "" {
		for _, pair := range pairs {
			if pair.Ledger == preferredLedger {
				return pair, record.PairCounts[pair]
			}
		}
	}
	return pairs[0], record.PairCounts[pairs[0]]
}

// SuggestCounterAccount returns the counterparty account historically
// associated with the description, preferring pairs on ledgerAccount when
// given. minCount below 1 is treated as 1. A prebuilt history map avoids
// re-mining when the caller processes many descriptions; pass nil to mine
// on demand. An empty result means no confident match, which is not an
// error.
func (s *Service) SuggestCounterAccount(userID, description, ledgerAccount string, minCount int, history map[string]*HistoryRecord) (string, error) {
	if minCount < 1 {
		minCount = 1
	}

	if history == nil {
		var err error
		history, err = s.HistoryRecords(userID)
		if err != nil {
			return "", err
		}
	}
	if len(history) == 0 {
		return "", nil
	}

	query := NormalizeDescription(description)
	if query == "" {
		return "", nil
	}

	// Candidate keys are sorted so ties between equally good matches
	// always resolve to the lexicographically first description.
	keys := make([]string, 0, len(history))
	for key := range history {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range matchKeys(query, keys) {
		pair, count := selectTopPair(history[key], ledgerAccount)
		if count >= minCount && pair.Counter != "" {
			return pair.Counter, nil
		}
	}
	return "", nil
}

// TransactionHistorySummary renders the most recent history records as
// prompt-ready lines, newest first with unknown dates last. A limit of 0
// or below uses defaultHistoryLimit.
func (s *Service) TransactionHistorySummary(userID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	history, err := s.HistoryRecords(userID)
	if err != nil {
		return nil, err
	}

	records := make([]*HistoryRecord, 0, len(history))
	for _, record := range history {
		records = append(records, record)
	}
	sort.SliceStable(records, func(i, j int) bool {
		di, dj := records[i].LastDate, records[j].LastDate
		if di != dj {
			if di == "" {
				return false
			}
			if dj == "" {
				return true
			}
			return di > dj
		}
		return records[i].Description < records[j].Description
	})
	if len(records) > limit {
		records = records[:limit]
	}

	lines := make([]string, 0, len(records))
	for _, record := range records {
		pair, count := selectTopPair(record, "")
		lastDate := record.LastDate
		if lastDate == "" {
			lastDate = "unknown"
		}
		lines = append(lines, fmt.Sprintf("- %q -> %s vs %s (last %s, seen %dx; top pair %dx)",
			record.Description, pair.Ledger, pair.Counter, lastDate, record.Seen, count))
	}
	return lines, nil
}
