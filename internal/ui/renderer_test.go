package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/egfanboy/mediapire-gateway/internal/identifier"
	"github.com/egfanboy/mediapire-gateway/pkg/types"
)

func render(t *testing.T, r *Renderer, node types.Node) string {
	t.Helper()
	var buf bytes.Buffer
	if err := r.Render(&buf, node); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestRender_UpLinkOnlyWithParent(t *testing.T) {
	parent := types.ContentID("media-source://reolink/CAM|0")
	node := types.Node{ContentID: "media-source://reolink/CAM|0/2024", CanExpand: true, Parent: &parent}

	body := render(t, NewRenderer("", ""), node)

	up := `<a href="/ui?media_content_id=` + identifier.Encode(parent) + `">⬅ Up</a>`
	if n := strings.Count(body, up); n != 1 {
		t.Fatalf("expected exactly one up link %q, found %d in:\n%s", up, n, body)
	}

	node.Parent = nil
	body = render(t, NewRenderer("", ""), node)
	if strings.Contains(body, "⬅ Up") {
		t.Fatalf("root must not have an up link:\n%s", body)
	}
}

func TestRender_FoldersAndLeaves(t *testing.T) {
	node := types.Node{
		ContentID: "media-source://reolink",
		CanExpand: true,
		Children: []types.Node{
			{Title: "Front door", ContentID: "media-source://reolink/CAM|0", CanExpand: true},
			{Title: "clip 1", ContentID: "media-source://reolink/FILE|a&b.mp4"},
			{Title: "no id", ContentID: ""},
			{ContentID: "media-source://reolink/FILE|untitled.mp4"},
		},
	}

	body := render(t, NewRenderer("", "Reolink Media"), node)

	folder := `📁 <a href="/ui?media_content_id=` + identifier.Encode("media-source://reolink/CAM|0") + `">Front door</a>`
	if !strings.Contains(body, folder) {
		t.Fatalf("missing folder entry %q in:\n%s", folder, body)
	}

	leafId := identifier.Encode("media-source://reolink/FILE|a&b.mp4")
	for _, want := range []string{
		`<a href="/resolve?media_content_id=` + leafId + `">resolve</a>`,
		`<a href="/proxy?media_content_id=` + leafId + `">proxy</a>`,
		`🎞 clip 1`,
		`🎞 media-source://reolink/FILE|untitled.mp4`,
		`<title>Reolink Media</title>`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}

	if strings.Contains(body, "no id") {
		t.Fatalf("child without identifier must be skipped:\n%s", body)
	}
	if strings.Count(body, "📁") != 1 {
		t.Fatalf("leaves must not render as folders:\n%s", body)
	}
	if strings.Contains(body, "<script") {
		t.Fatalf("page must not carry scripts")
	}
}

func TestRender_EscapesBackendText(t *testing.T) {
	node := types.Node{
		ContentID: `media-source://<b>x</b>`,
		CanExpand: true,
		Children: []types.Node{
			{Title: `<script>alert(1)</script>`, ContentID: "a"},
			{Title: `"><img src=x>`, ContentID: "b", CanExpand: true},
		},
	}

	body := render(t, NewRenderer("", ""), node)

	for _, bad := range []string{"<b>x</b>", "<script>alert(1)</script>", `"><img src=x>`} {
		if strings.Contains(body, bad) {
			t.Fatalf("unescaped backend text %q in:\n%s", bad, body)
		}
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Fatalf("expected escaped title in:\n%s", body)
	}
}

func TestRender_BasePath(t *testing.T) {
	parent := types.ContentID("root")
	node := types.Node{ContentID: "x", Parent: &parent, CanExpand: true, Children: []types.Node{{ContentID: "leaf"}}}

	body := render(t, NewRenderer("/reolink-media/", ""), node)

	for _, want := range []string{
		`href="/reolink-media/ui?media_content_id=root"`,
		`href="/reolink-media/resolve?media_content_id=leaf"`,
		`href="/reolink-media/proxy?media_content_id=leaf"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}
