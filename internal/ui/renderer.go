// Package ui renders the browsable HTML view of a catalog node.
package ui

import (
	"html/template"
	"io"
	"strings"

	"github.com/egfanboy/mediapire-gateway/internal/identifier"
	"github.com/egfanboy/mediapire-gateway/pkg/types"
)

const (
	PathUi      = "/ui"
	PathResolve = "/resolve"
	PathProxy   = "/proxy"

	DefaultTitle = "Media Source"
)

type Renderer struct {
	basePath string
	title    string
	tpl      *template.Template
}

type entry struct {
	Title      string
	Href       string
	ResolveRef string
	ProxyRef   string
	Folder     bool
}

type page struct {
	Title     string
	ContentId string
	UpHref    string
	Entries   []entry
}

// NewRenderer builds links under basePath ("" when mounted at the root).
func NewRenderer(basePath, title string) *Renderer {
	if title == "" {
		title = DefaultTitle
	}

	return &Renderer{
		basePath: strings.TrimRight(basePath, "/"),
		title:    title,
		tpl:      template.Must(template.New("page").Parse(pageTpl)),
	}
}

// Render writes one self-contained document for node. All backend text is escaped by the template.
func (r *Renderer) Render(w io.Writer, node types.Node) error {
	p := page{
		Title:     r.title,
		ContentId: node.ContentID.String(),
	}

	if node.Parent != nil {
		p.UpHref = r.link(PathUi, *node.Parent)
	}

	for _, child := range node.Children {
		// nothing to link to
		if child.ContentID.IsEmpty() {
			continue
		}

		e := entry{Title: child.DisplayTitle(), Folder: child.CanExpand}
		if child.CanExpand {
			e.Href = r.link(PathUi, child.ContentID)
		} else {
			e.ResolveRef = r.link(PathResolve, child.ContentID)
			e.ProxyRef = r.link(PathProxy, child.ContentID)
		}

		p.Entries = append(p.Entries, e)
	}

	return r.tpl.Execute(w, p)
}

func (r *Renderer) link(path string, id types.ContentID) string {
	return r.basePath + path + "?" + identifier.Query(id)
}

const pageTpl = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,-apple-system,Segoe UI,Roboto;max-width:1100px;margin:0 auto;padding:1rem}
ul{list-style:none;padding:0;margin:0}
li{padding:6px;border-radius:6px}
li:hover{background:#f6f6f6}
code{color:#666}
</style>
</head>
<body>
<h3>{{.Title}}</h3>
<p><code>{{.ContentId}}</code></p>
{{if .UpHref}}<p><a href="{{.UpHref}}">⬅ Up</a></p>
{{end}}<ul>
{{range .Entries}}{{if .Folder}}<li>📁 <a href="{{.Href}}">{{.Title}}</a></li>
{{else}}<li>🎞 {{.Title}} — <a href="{{.ResolveRef}}">resolve</a> | <a href="{{.ProxyRef}}">proxy</a></li>
{{end}}{{else}}<li><small>Nothing here</small></li>
{{end}}</ul>
</body>
</html>
`
