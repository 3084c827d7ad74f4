package store

import (
	"math"
	"sort"
)

// DefaultMaxFeatures is the vocabulary cap F for the TF-IDF matrix.
const DefaultMaxFeatures = 10000

// sparseVec is an L2-normalized sparse vector over the matrix vocabulary.
type sparseVec map[int]float64

// Matrix is an immutable TF-IDF matrix over a document corpus.
//
// The vocabulary is fit once on a full rebuild and frozen afterwards;
// incremental adds vectorize new rows against the existing vocabulary.
// Readers always work against a single Matrix value, so a rebuild swaps
// the whole matrix atomically from their perspective.
type Matrix struct {
	vocab    map[string]int // term -> feature index
	idf      []float64      // per-feature inverse document frequency
	rows     []sparseVec    // row order is stable for the matrix lifetime
	rowIDs   []string       // document id per row
	rowIndex map[string]int // document id -> row
	features int
}

// FitMatrix builds a new matrix from scratch: fits the vocabulary on the
// given texts (unigrams and bigrams, capped at maxFeatures by document
// frequency) and vectorizes every document.
func FitMatrix(ids []string, texts []string, maxFeatures int) *Matrix {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}

	// Term document frequencies over the corpus.
	docTerms := make([]map[string]int, len(texts))
	df := make(map[string]int)
	for i, text := range texts {
		counts := termCounts(text)
		docTerms[i] = counts
		for term := range counts {
			df[term]++
		}
	}

	vocab := selectVocabulary(df, maxFeatures)

	m := &Matrix{
		vocab:    vocab,
		idf:      make([]float64, len(vocab)),
		rows:     make([]sparseVec, 0, len(texts)),
		rowIDs:   make([]string, 0, len(texts)),
		rowIndex: make(map[string]int, len(texts)),
		features: len(vocab),
	}

	// Smoothed idf so unseen-in-corpus query terms never divide by zero.
	n := float64(len(texts))
	for term, idx := range vocab {
		m.idf[idx] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	for i, id := range ids {
		m.appendRow(id, docTerms[i])
	}
	return m
}

// WithRows returns a copy of the matrix extended by the given documents,
// vectorized against the frozen vocabulary. The receiver is not modified.
func (m *Matrix) WithRows(ids []string, texts []string) *Matrix {
	next := &Matrix{
		vocab:    m.vocab,
		idf:      m.idf,
		rows:     make([]sparseVec, len(m.rows), len(m.rows)+len(ids)),
		rowIDs:   make([]string, len(m.rowIDs), len(m.rowIDs)+len(ids)),
		rowIndex: make(map[string]int, len(m.rowIndex)+len(ids)),
		features: m.features,
	}
	copy(next.rows, m.rows)
	copy(next.rowIDs, m.rowIDs)
	for id, row := range m.rowIndex {
		next.rowIndex[id] = row
	}

	for i, id := range ids {
		counts := termCounts(texts[i])
		if row, ok := next.rowIndex[id]; ok {
			// Upsert: re-vectorize in place, row order unchanged.
			next.rows[row] = next.vectorize(counts)
			continue
		}
		next.appendRow(id, counts)
	}
	return next
}

// Rows returns the number of document rows.
func (m *Matrix) Rows() int {
	if m == nil {
		return 0
	}
	return len(m.rows)
}

// Features returns the vocabulary size.
func (m *Matrix) Features() int {
	if m == nil {
		return 0
	}
	return m.features
}

// Hit is a scored lexical match.
type Hit struct {
	DocumentID string
	Score      float64
}

// Search scores the query against every row by cosine similarity and
// returns up to limit hits ordered by score descending, ties broken by
// document id ascending. An empty or all-stopword query yields no hits.
func (m *Matrix) Search(query string, limit int, excluded map[string]bool) []Hit {
	if m == nil || len(m.rows) == 0 || limit <= 0 {
		return nil
	}

	qvec := m.vectorize(termCounts(query))
	if len(qvec) == 0 {
		return nil
	}

	hits := make([]Hit, 0, limit)
	for i, row := range m.rows {
		id := m.rowIDs[i]
		if excluded[id] {
			continue
		}
		score := dot(qvec, row)
		if score <= 0 {
			continue
		}
		hits = append(hits, Hit{DocumentID: id, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocumentID < hits[j].DocumentID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// appendRow vectorizes and appends one document row.
func (m *Matrix) appendRow(id string, counts map[string]int) {
	m.rowIndex[id] = len(m.rows)
	m.rowIDs = append(m.rowIDs, id)
	m.rows = append(m.rows, m.vectorize(counts))
}

// vectorize maps term counts to an L2-normalized tf-idf vector using
// sublinear term frequency (1 + log tf).
func (m *Matrix) vectorize(counts map[string]int) sparseVec {
	vec := make(sparseVec)
	for term, count := range counts {
		idx, ok := m.vocab[term]
		if !ok {
			continue
		}
		tf := 1 + math.Log(float64(count))
		vec[idx] = tf * m.idf[idx]
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return sparseVec{}
	}
	norm = math.Sqrt(norm)
	for idx := range vec {
		vec[idx] /= norm
	}
	return vec
}

// termCounts tokenizes text into unigram and bigram term frequencies.
func termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, term := range NgramTerms(Tokenize(text)) {
		counts[term]++
	}
	return counts
}

// selectVocabulary keeps the maxFeatures highest-document-frequency terms,
// ties broken alphabetically for determinism.
func selectVocabulary(df map[string]int, maxFeatures int) map[string]int {
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}

	// Index alphabetically so feature order is independent of frequency ties.
	sort.Strings(terms)
	vocab := make(map[string]int, len(terms))
	for i, term := range terms {
		vocab[term] = i
	}
	return vocab
}

// dot multiplies two sparse vectors, iterating the smaller one.
func dot(a, b sparseVec) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var sum float64
	for idx, v := range a {
		if w, ok := b[idx]; ok {
			sum += v * w
		}
	}
	return sum
}
