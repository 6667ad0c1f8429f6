package application

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JohannesKaufmann/dom"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/dfryer1193/postimport/blog/domain"
	"golang.org/x/net/html"
)

const placeholderPrefix = "./image-placeholder-"

var altEscaper = strings.NewReplacer("[", `\[`, "]", `\]`)

// MarkdownConverter turns article HTML into Markdown. Image elements are
// replaced by numbered placeholders so their targets can be decided after
// the assets have been fetched.
type MarkdownConverter struct{}

func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{}
}

// Convert returns the Markdown for bodyHTML together with one ImageReference
// per emitted placeholder, in document order. Relative image sources are
// resolved against pageURL.
func (c *MarkdownConverter) Convert(bodyHTML string, pageURL *url.URL) (string, []domain.ImageReference, error) {
	var refs []domain.ImageReference

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle(commonmark.HeadingStyleATX),
				commonmark.WithCodeBlockFence("```"),
			),
		),
	)
	conv.Register.RendererFor("img", converter.TagTypeInline,
		func(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
			src := strings.TrimSpace(dom.GetAttributeOr(n, "src", ""))
			if src == "" {
				return converter.RenderSuccess
			}

			ref := domain.ImageReference{
				OriginalSource: resolveImageSource(pageURL, src),
				AltText:        strings.Join(strings.Fields(dom.GetAttributeOr(n, "alt", "")), " "),
				Index:          len(refs),
			}
			refs = append(refs, ref)

			w.WriteString(placeholderMarkdown(ref))
			return converter.RenderSuccess
		},
		converter.PriorityEarly,
	)

	var markdown string
	var err error
	if pageURL != nil {
		markdown, err = conv.ConvertString(bodyHTML, converter.WithDomain(pageURL.String()))
	} else {
		markdown, err = conv.ConvertString(bodyHTML)
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to convert article to markdown: %w", err)
	}

	return markdown, refs, nil
}

func placeholderMarkdown(ref domain.ImageReference) string {
	return "![" + altEscaper.Replace(ref.AltText) + "](" + placeholderPrefix + strconv.Itoa(ref.Index) + ")"
}

func resolveImageSource(pageURL *url.URL, src string) string {
	if pageURL == nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return pageURL.ResolveReference(ref).String()
}
