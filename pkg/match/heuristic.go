package match

import (
	"fmt"
	"strings"

	"github.com/mwhitford/filecabinet/internal/models"
)

// extensionHints maps extensions to theme words looked up against folder
// names and keywords when no rule matched
var extensionHints = map[string][]string{
	"pdf":  {"document", "documents", "report", "reports", "invoice", "invoices", "paper", "papers", "receipt", "receipts", "statement", "statements"},
	"doc":  {"document", "documents", "letter", "letters", "writing", "draft", "drafts"},
	"docx": {"document", "documents", "letter", "letters", "writing", "draft", "drafts"},
	"txt":  {"note", "notes", "text", "writing"},
	"md":   {"note", "notes", "documentation", "docs", "writing"},
	"xls":  {"spreadsheet", "spreadsheets", "budget", "budgets", "finance", "accounting"},
	"xlsx": {"spreadsheet", "spreadsheets", "budget", "budgets", "finance", "accounting"},
	"csv":  {"data", "export", "exports", "spreadsheet", "spreadsheets"},
	"ppt":  {"presentation", "presentations", "slides", "deck", "decks"},
	"pptx": {"presentation", "presentations", "slides", "deck", "decks"},
	"jpg":  {"photo", "photos", "image", "images", "picture", "pictures"},
	"jpeg": {"photo", "photos", "image", "images", "picture", "pictures"},
	"png":  {"image", "images", "screenshot", "screenshots", "graphic", "graphics"},
	"gif":  {"image", "images", "meme", "memes"},
	"svg":  {"graphic", "graphics", "design", "icon", "icons"},
	"mp4":  {"video", "videos", "movie", "movies", "recording", "recordings"},
	"mov":  {"video", "videos", "movie", "movies", "recording", "recordings"},
	"mp3":  {"music", "audio", "song", "songs", "podcast", "podcasts"},
	"wav":  {"audio", "sound", "sounds", "recording", "recordings"},
	"zip":  {"archive", "archives", "backup", "backups", "download", "downloads"},
	"tar":  {"archive", "archives", "backup", "backups"},
	"gz":   {"archive", "archives", "backup", "backups"},
	"epub": {"book", "books", "ebook", "ebooks", "reading"},
	"mobi": {"book", "books", "ebook", "ebooks", "reading"},
	"psd":  {"design", "designs", "artwork", "graphics"},
	"ai":   {"design", "designs", "artwork", "graphics"},
	"json": {"data", "config", "configs", "export", "exports"},
	"xml":  {"data", "config", "configs", "export", "exports"},
	"sql":  {"database", "databases", "data", "backup", "backups"},
}

// heuristicSuggestions proposes folders for a file that no rule claimed.
// Two passes: theme-word overlap between the extension's hint set and the
// folder's vocabulary, then name-token similarity between the filename and
// folder keywords. Results are deduplicated by folder number, first hit
// wins.
func heuristicSuggestions(rec *models.FileRecord, folders []*models.Folder) []*models.Suggestion {
	var out []*models.Suggestion
	seen := map[string]bool{}

	hints := extensionHints[rec.Extension]
	if len(hints) > 0 {
		for _, folder := range folders {
			vocab := folderVocabulary(folder)
			overlap := 0
			for _, hint := range hints {
				if vocab[hint] {
					overlap++
				}
			}
			if overlap == 0 {
				continue
			}

			confidence := models.ConfidenceLow
			if overlap >= 2 {
				confidence = models.ConfidenceMedium
			}
			if !seen[folder.Number] {
				seen[folder.Number] = true
				out = append(out, &models.Suggestion{
					TargetFolder: folder,
					Confidence:   confidence,
					Reason:       fmt.Sprintf("Folder %q suits %s files", folder.Name, rec.Extension),
				})
			}
		}
	}

	nameTokens := tokenize(strings.TrimSuffix(rec.Filename, "."+rec.Extension))
	for _, folder := range folders {
		if seen[folder.Number] {
			continue
		}
		best := 0.0
		bestKeyword := ""
		for keyword := range folderVocabulary(folder) {
			for _, token := range nameTokens {
				if score := tokenSimilarity(token, keyword); score > best {
					best = score
					bestKeyword = keyword
				}
			}
		}
		if best > 0.7 {
			seen[folder.Number] = true
			out = append(out, &models.Suggestion{
				TargetFolder: folder,
				Confidence:   models.ConfidenceLow,
				Reason:       fmt.Sprintf("Filename resembles keyword %q", bestKeyword),
			})
		}
	}

	return out
}

// folderVocabulary collects the lowercase words of a folder's name and
// keyword list
func folderVocabulary(folder *models.Folder) map[string]bool {
	vocab := map[string]bool{}
	for _, token := range tokenize(folder.Name) {
		vocab[token] = true
	}
	if folder.Keywords != nil {
		for _, kw := range strings.Split(*folder.Keywords, ",") {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				vocab[kw] = true
			}
		}
	}
	return vocab
}

// tokenize splits on anything that is not a letter or digit
func tokenize(s string) []string {
	var tokens []string
	var current strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// tokenSimilarity scores two tokens: 1.0 when equal, 0.8 when one contains
// the other, otherwise the Jaccard ratio of their character sets. The
// character-set comparison treats anagrams as identical, which is accepted:
// folder keywords are short English words where the collision rate is low.
func tokenSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.8
	}

	setA := charSet(a)
	setB := charSet(b)
	intersection := 0
	for c := range setA {
		if setB[c] {
			intersection++
		}
	}
	union := len(setB)
	for c := range setA {
		if !setB[c] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func charSet(s string) map[rune]bool {
	set := map[rune]bool{}
	for _, r := range s {
		set[r] = true
	}
	return set
}
