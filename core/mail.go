package core

import (
	"bytes"
	"context"
	"embed"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

//go:embed templates/email/*
var templateFS embed.FS

var (
	templates tmplCache
	tmplErr   error
	tmplInit  sync.Once
)

type (
	tmplCacheEntry struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}
	tmplCache map[string]*tmplCacheEntry // {name: entry}

	EmailMessage struct {
		To      []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName string
		Data    interface{}
	}

	// EmailService is any service that can deliver emails.
	// Send blocks until the message is handed over (or captured) and reports failure.
	EmailService interface {
		Send(ctx context.Context, msg *EmailMessage) error
	}
)

// ParseEmailTemplates parses the embedded email templates once. Safe to call multiple times.
func ParseEmailTemplates(logger Logger) {
	tmplInit.Do(parseTemplates)
	if tmplErr != nil && logger != nil {
		logger.Error("parsing email templates", tmplErr)
	}
}

func (m *EmailMessage) renderText(appName string) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	entry, ok := templates[m.TemplateName]
	if !ok || entry.text == nil {
		return nil
	}

	var buff bytes.Buffer
	if err := entry.text.Execute(&buff, ContextData{AppName: appName, Data: m.TemplateData}); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML(appName string) error {
	entry, ok := templates[m.TemplateName]
	if !ok || entry.html == nil {
		return nil
	}

	var buff bytes.Buffer
	if err := entry.html.Execute(&buff, ContextData{AppName: appName, Data: m.TemplateData}); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

// Render fills TextContent and HTMLContent from BodyStr or the named template.
func (m *EmailMessage) Render(appName string) error {
	if m.TemplateName != "" {
		tmplInit.Do(parseTemplates)
		if tmplErr != nil {
			return tmplErr
		}
	}
	if err := m.renderText(appName); err != nil {
		return errors.Wrap(err, "rendering text")
	}
	if m.TemplateName == "" {
		return nil
	}
	return errors.Wrap(m.renderHTML(appName), "rendering html")
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// Recipients returns the bare recipient addresses.
func (m *EmailMessage) Recipients() []string {
	addrs := make([]string, 0, len(m.To))
	for _, to := range m.To {
		addrs = append(addrs, to.Address)
	}
	return addrs
}

func parseTemplates() {
	templates = make(tmplCache)

	root := "templates/email"
	fps, err := fs.Glob(templateFS, path.Join(root, "*"))
	if err != nil {
		tmplErr = errors.Wrap(err, "globbing email templates")
		return
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := templates[name]
		if !ok {
			entry = new(tmplCacheEntry)
			templates[name] = entry
		}
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(templateFS, path.Join(root, "_base.txt"), fp)
			if err != nil {
				tmplErr = errors.Wrapf(err, "parsing %s", fname)
				return
			}
			entry.text = tmpl.Option("missingkey=error")
		} else {
			tmpl, err := htmltmpl.ParseFS(templateFS, path.Join(root, "_base.gohtml"), fp)
			if err != nil {
				tmplErr = errors.Wrapf(err, "parsing %s", fname)
				return
			}
			entry.html = tmpl.Option("missingkey=error")
		}
	}
}
