// Package linkresolver picks the download link out of a scraped page.
package linkresolver

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

// DocumentLoader loads and parses the document at a URL.
type DocumentLoader interface {
	Load(ctx context.Context, pageURL string) (*html.Node, error)
}

// PageLoader adapts a workflow.PageFetcher into a DocumentLoader.
type PageLoader struct {
	pages workflow.PageFetcher
}

// NewPageLoader wraps pages.
func NewPageLoader(pages workflow.PageFetcher) *PageLoader {
	return &PageLoader{pages: pages}
}

// Load fetches pageURL and parses it as HTML. The parser is lenient, so only an empty body
// is rejected.
func (l *PageLoader) Load(ctx context.Context, pageURL string) (*html.Node, error) {
	body, err := l.pages.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", workflow.ErrInvalidOperation, pageURL, err)
	}
	return doc, nil
}

// Resolver implements workflow.LinkResolver.
type Resolver struct {
	loader DocumentLoader
	logger *zap.Logger
}

// New builds a Resolver.
func New(loader DocumentLoader, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{loader: loader, logger: logger}
}

// Resolve selects every node matching target.Selector, keeps the first whose text contains
// target.MatchToken (case-sensitive, document order) and joins its href onto the page origin.
func (r *Resolver) Resolve(ctx context.Context, target workflow.ScrapeTarget) (workflow.ResolvedLink, error) {
	expr, err := target.Compile()
	if err != nil {
		return workflow.ResolvedLink{}, err
	}
	doc, err := r.loader.Load(ctx, target.PageURL)
	if err != nil {
		return workflow.ResolvedLink{}, err
	}

	nodes := htmlquery.QuerySelectorAll(doc, expr)
	var chosen *html.Node
	for _, node := range nodes {
		if strings.Contains(htmlquery.InnerText(node), target.MatchToken) {
			chosen = node
			break
		}
	}
	if chosen == nil {
		return workflow.ResolvedLink{}, fmt.Errorf("%w: %d nodes selected by %q, none contain %q",
			workflow.ErrNoMatchingNode, len(nodes), target.Selector, target.MatchToken)
	}
	if !htmlquery.ExistsAttr(chosen, "href") {
		return workflow.ResolvedLink{}, fmt.Errorf("%w: <%s> containing %q",
			workflow.ErrMissingAttribute, chosen.Data, target.MatchToken)
	}
	href := htmlquery.SelectAttr(chosen, "href")

	abs, err := JoinOrigin(target.PageURL, href)
	if err != nil {
		return workflow.ResolvedLink{}, err
	}
	r.logger.Debug("link resolved",
		zap.String("page_url", target.PageURL),
		zap.String("href", href),
		zap.String("url", abs),
		zap.Int("candidates", len(nodes)),
	)
	return workflow.ResolvedLink{AbsoluteURL: abs}, nil
}

// JoinOrigin cuts pageURL at the start of its path, dropping path, query and fragment, and
// appends href unchanged. Relative forms such as "../x" or "x" are not normalized, and an
// absolute href is still prefixed. The origin is rebuilt from scheme, userinfo and host,
// with a port equal to the scheme's default left out.
func JoinOrigin(pageURL, href string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: page url: %v", workflow.ErrInvalidEvent, err)
	}
	host := u.Host
	if port := u.Port(); port != "" && port == defaultPorts[u.Scheme] {
		host = strings.TrimSuffix(host, ":"+port)
	}
	origin := url.URL{Scheme: u.Scheme, User: u.User, Host: host}
	return origin.String() + href, nil
}

var defaultPorts = map[string]string{"http": "80", "https": "443"}
