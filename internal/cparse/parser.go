package cparse

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/cppbear/brinfo/pkg/logging"
)

// DefaultMaxFileSize is the maximum translation-unit size the parser accepts.
const DefaultMaxFileSize = 20 * 1024 * 1024

// ErrFileTooLarge is returned when input content exceeds MaxFileSize.
var ErrFileTooLarge = errors.New("cparse: file exceeds maximum size limit")

// ErrInvalidContent is returned when content is not valid UTF-8.
var ErrInvalidContent = errors.New("cparse: content is not valid UTF-8")

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithMaxFileSize overrides the maximum accepted file size in bytes.
func WithMaxFileSize(bytes int64) ParserOption {
	return func(p *Parser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// WithLogger attaches a structured logger; defaults to logging.Default().
func WithLogger(l *logging.Logger) ParserOption {
	return func(p *Parser) { p.logger = l }
}

// Parser extracts FunctionInfo entries from a C/C++ translation unit using
// tree-sitter's cpp grammar. A new tree-sitter parser is created per Parse
// call, so Parser is safe for concurrent use across goroutines, mirroring
// the source-parsing layer's approach elsewhere in this repository.
type Parser struct {
	maxFileSize int64
	logger      *logging.Logger
}

// NewParser creates a Parser with sensible defaults.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{maxFileSize: DefaultMaxFileSize, logger: logging.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FileAST is the parsed result of one translation unit.
type FileAST struct {
	FilePath  string
	Hash      string
	Functions []FunctionInfo
	// HasSyntaxError is true when tree-sitter's error-recovery kicked in;
	// instrumentation proceeds on a best-effort basis regardless.
	HasSyntaxError bool
}

// Parse parses content (the raw bytes of filePath) and extracts every
// function/method definition plus its condition and call sites.
func (p *Parser) Parse(ctx context.Context, content []byte, filePath string) (*FileAST, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cparse: canceled before start: %w", err)
	}
	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w", ErrInvalidContent)
	}

	sum := sha256.Sum256(content)

	parser := sitter.NewParser()
	parser.SetLanguage(cpp.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("cparse: tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cparse: canceled after parse: %w", err)
	}

	root := tree.RootNode()
	result := &FileAST{FilePath: filePath, Hash: hex.EncodeToString(sum[:])}
	if root == nil {
		p.logger.Warn("cparse: nil root node", "file", filePath)
		return result, nil
	}
	if root.HasError() {
		result.HasSyntaxError = true
		p.logger.Debug("cparse: source contains syntax errors, proceeding best-effort", "file", filePath)
	}

	w := &walker{content: content}
	w.collectFunctions(root, result)

	return result, nil
}
