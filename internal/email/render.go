// Package email renders transactional emails.  Every value is inserted
// through html/template, so user supplied text is escaped.
package email

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
)

// Email kinds carried on the queue.
const (
	KindWelcome            = "welcome"
	KindGenerationComplete = "generation_complete"
	KindCommentReply       = "comment_reply"
	KindCertification      = "certification_earned"
	KindWeeklyDigest       = "weekly_digest"
)

type WelcomeData struct {
	Name string `json:"name"`
}

type GenerationCompleteData struct {
	Name          string `json:"name"`
	TemplateID    uint64 `json:"template_id"`
	TemplateTitle string `json:"template_title"`
}

type CommentReplyData struct {
	Name          string `json:"name"`
	ReplierName   string `json:"replier_name"`
	TemplateID    uint64 `json:"template_id"`
	TemplateTitle string `json:"template_title"`
	Excerpt       string `json:"excerpt"`
}

type CertificationData struct {
	Name            string `json:"name"`
	TutorialID      string `json:"tutorial_id"`
	CertificateCode string `json:"certificate_code"`
}

type DigestItem struct {
	ID       uint64  `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

type DigestData struct {
	Name      string       `json:"name"`
	Templates []DigestItem `json:"templates"`
}

// Message is a rendered email.
type Message struct {
	Subject string
	HTML    string
}

//go:embed templates/*.html
var files embed.FS

type kindSpec struct {
	file    string
	data    func() any
	subject func(any) string
}

var kinds = map[string]kindSpec{
	KindWelcome: {
		file:    "welcome.html",
		data:    func() any { return &WelcomeData{} },
		subject: func(any) string { return "Welcome to TemplateHub" },
	},
	KindGenerationComplete: {
		file: "generation_complete.html",
		data: func() any { return &GenerationCompleteData{} },
		subject: func(d any) string {
			return fmt.Sprintf("%q is now live", d.(*GenerationCompleteData).TemplateTitle)
		},
	},
	KindCommentReply: {
		file: "comment_reply.html",
		data: func() any { return &CommentReplyData{} },
		subject: func(d any) string {
			return d.(*CommentReplyData).ReplierName + " replied to your comment"
		},
	},
	KindCertification: {
		file:    "certification_earned.html",
		data:    func() any { return &CertificationData{} },
		subject: func(any) string { return "You earned a certificate" },
	},
	KindWeeklyDigest: {
		file:    "weekly_digest.html",
		data:    func() any { return &DigestData{} },
		subject: func(any) string { return "Your weekly TemplateHub digest" },
	},
}

// Renderer holds the parsed templates.  It is safe for concurrent use.
type Renderer struct {
	baseURL string
	tpls    map[string]*template.Template
}

// NewRenderer parses every email template.  baseURL prefixes links.
func NewRenderer(baseURL string) (*Renderer, error) {
	r := &Renderer{baseURL: strings.TrimRight(baseURL, "/"), tpls: make(map[string]*template.Template, len(kinds))}
	for kind, spec := range kinds {
		t, err := template.ParseFS(files, "templates/layout.html", "templates/"+spec.file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", kind, err)
		}
		r.tpls[kind] = t
	}
	return r, nil
}

// Render decodes raw into the data type of kind and renders it.
func (r *Renderer) Render(kind string, raw json.RawMessage) (*Message, error) {
	spec, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown email kind %q", kind)
	}
	data := spec.data()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, data); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", kind, err)
		}
	}
	subject := spec.subject(data)

	var buf bytes.Buffer
	err := r.tpls[kind].ExecuteTemplate(&buf, "layout", map[string]any{
		"Subject": subject,
		"BaseURL": r.baseURL,
		"Data":    data,
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", kind, err)
	}
	return &Message{Subject: subject, HTML: buf.String()}, nil
}

// Known reports whether kind has a template.
func Known(kind string) bool {
	_, ok := kinds[kind]
	return ok
}
