package docindex

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	// nameTokenizerName is the code-aware tokenizer registered below,
	// used for the symbol `Name` field so queries match camelCase and
	// snake_case sub-words.
	nameTokenizerName = "codanna_name_tokenizer"

	// nameAnalyzerName composes the tokenizer above with lowercasing.
	nameAnalyzerName = "codanna_name_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(nameTokenizerName, nameTokenizerConstructor)
}

// buildIndexMapping constructs the bleve mapping used for the single,
// shared index that holds all five document types distinguished by
// DocType. Each document type gets its own bleve
// document mapping so that, e.g., a relationship's FromId field isn't
// analyzed as free text.
func buildIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	if err := im.AddCustomAnalyzer(nameAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": nameTokenizerName,
		"token_filters": []string{
			lowercase.Name,
		},
	}); err != nil {
		return nil, err
	}

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = nameAnalyzerName

	textFieldMapping := bleve.NewTextFieldMapping() // default analyzer: standard tokenizer

	symbolDM := bleve.NewDocumentMapping()
	symbolDM.AddFieldMappingsAt("DocType", keywordFieldMapping)
	symbolDM.AddFieldMappingsAt("Kind", keywordFieldMapping)
	symbolDM.AddFieldMappingsAt("LanguageId", keywordFieldMapping)
	symbolDM.AddFieldMappingsAt("ModulePath", keywordFieldMapping)
	symbolDM.AddFieldMappingsAt("Name", nameFieldMapping)
	symbolDM.AddFieldMappingsAt("Signature", textFieldMapping)
	symbolDM.AddFieldMappingsAt("DocComment", textFieldMapping)
	im.AddDocumentMapping(docTypeSymbol, symbolDM)

	relationshipDM := bleve.NewDocumentMapping()
	relationshipDM.AddFieldMappingsAt("DocType", keywordFieldMapping)
	relationshipDM.AddFieldMappingsAt("Kind", keywordFieldMapping)
	im.AddDocumentMapping(docTypeRelationship, relationshipDM)

	fileDM := bleve.NewDocumentMapping()
	fileDM.AddFieldMappingsAt("DocType", keywordFieldMapping)
	fileDM.AddFieldMappingsAt("Path", keywordFieldMapping)
	fileDM.AddFieldMappingsAt("LanguageId", keywordFieldMapping)
	im.AddDocumentMapping(docTypeFileInfo, fileDM)

	importDM := bleve.NewDocumentMapping()
	importDM.AddFieldMappingsAt("DocType", keywordFieldMapping)
	im.AddDocumentMapping(docTypeImport, importDM)

	metaDM := bleve.NewDocumentMapping()
	metaDM.AddFieldMappingsAt("DocType", keywordFieldMapping)
	metaDM.AddFieldMappingsAt("Key", keywordFieldMapping)
	im.AddDocumentMapping(docTypeMetadata, metaDM)

	im.DefaultMapping.Dynamic = false
	return im, nil
}

// nameTokenizerConstructor registers the code-aware tokenizer with bleve's
// analyzer registry (same registration shape as the teacher's custom
// code tokenizer in internal/store/bm25.go).
func nameTokenizerConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &nameTokenizer{}, nil
}

type nameTokenizer struct{}

func (t *nameTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := tokenizeCode(text)

	stream := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0
	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)
		stream = append(stream, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return stream
}
