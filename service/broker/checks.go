package broker

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/starks-and-wolves/ai-browser-secure/classifier"
	"github.com/starks-and-wolves/ai-browser-secure/model/action"
	"github.com/starks-and-wolves/ai-browser-secure/policy"
	"github.com/starks-and-wolves/ai-browser-secure/service/audit"
)

// internalURLs never require approval; they are placeholders the browser
// produces on its own.
var internalURLs = map[string]bool{
	"about:blank":            true,
	"chrome://newtab/":       true,
	"chrome://new-tab-page/": true,
}

func isInternalURL(url string) bool {
	return internalURLs[url] || strings.HasPrefix(url, "chrome://")
}

// CheckNavigation gates navigation to url. Denied domains fail fatally
// before any prompt; pre-approved domains pass silently; everything else is
// submitted for approval and a deny surfaces as *PermissionDeniedError.
func (b *Broker) CheckNavigation(ctx context.Context, url string, newTab bool) error {
	if !b.gating.Navigation {
		return nil
	}
	if isInternalURL(url) {
		return nil
	}
	domain := policy.Domain(url)

	// Denied domains are never eligible for approval, regardless of any
	// cached decision.
	if b.policy.IsDenied(domain) {
		log.Printf("navigation to denied domain blocked: %s", url)
		return &PolicyBlockedError{URL: url, Domain: domain}
	}
	if b.policy.IsApproved(domain) {
		return nil
	}

	request := &action.Request{
		Type:        action.Navigation,
		Description: fmt.Sprintf("Navigate to %s", url),
		Details: map[string]interface{}{
			"url":     url,
			"domain":  domain,
			"new_tab": newTab,
		},
		Risk: classifier.NavigationRisk(domain, b.policy),
		URL:  url,
	}

	decision, err := b.RequestApproval(ctx, request)
	if err != nil {
		return err
	}
	if decision == action.Deny {
		log.Printf("navigation denied by user: %s", url)
		return b.denied(request)
	}
	log.Printf("navigation approved: %s", url)
	return nil
}

// CheckTextInput gates typing text into a form field. Non-sensitive fields
// skip the broker entirely unless all form input is gated; this path runs on
// the majority of actions and must stay cheap. Sensitive values are masked
// before any provider sees them.
func (b *Broker) CheckTextInput(ctx context.Context, el *action.Element, text string, isSensitive bool) error {
	field, risk := classifier.DetectField(el)

	needsApproval := b.gating.Forms ||
		(b.gating.SensitiveData && field != "") ||
		isSensitive
	if !needsApproval {
		return nil
	}
	if isSensitive && field == "" {
		risk = action.RiskHigh
	}

	display := text
	if classifier.MaskedField(field) || isSensitive {
		display = action.Mask(text)
	}

	actionType := action.FormInput
	description := "Enter text into form field"
	if field != "" {
		actionType = action.SensitiveDataInput
		description = "Enter sensitive text into form field"
	}
	fieldType := field
	if fieldType == "" {
		fieldType = "text"
	}

	request := &action.Request{
		Type:        actionType,
		Description: description,
		Details: map[string]interface{}{
			"field_type":   fieldType,
			"text_preview": display,
			"text_length":  len(text),
			"is_sensitive": isSensitive,
		},
		Risk:    risk,
		URL:     b.currentPageURL(ctx),
		Element: el,
	}

	decision, err := b.RequestApproval(ctx, request)
	if err != nil {
		return err
	}
	if decision == action.Deny {
		log.Printf("text input denied by user")
		return b.denied(request)
	}
	log.Printf("text input approved for %s field", fieldType)
	return nil
}

// CheckClick gates clicks on sensitive buttons. Risk escalates one level on
// high-risk domains.
func (b *Broker) CheckClick(ctx context.Context, el *action.Element) error {
	button, risk := classifier.DetectButton(el)
	if button == "" {
		return nil
	}

	url := b.currentPageURL(ctx)
	if b.policy.IsHighRisk(policy.Domain(url)) {
		risk = risk.Escalate()
	}

	request := &action.Request{
		Type:        classifier.ButtonAction(button),
		Description: fmt.Sprintf("Click %s button", button),
		Details:     map[string]interface{}{"button_type": button},
		Risk:        risk,
		URL:         url,
		Element:     el,
	}

	decision, err := b.RequestApproval(ctx, request)
	if err != nil {
		return err
	}
	if decision == action.Deny {
		log.Printf("click on %s button denied by user", button)
		return b.denied(request)
	}
	log.Printf("click on %s button approved", button)
	return nil
}

// CheckUpload gates file uploads; they always carry high risk when file
// operations are gated at all.
func (b *Broker) CheckUpload(ctx context.Context, el *action.Element, filePath string) error {
	if !b.gating.FileOperations {
		return nil
	}
	request := &action.Request{
		Type:        action.FileUpload,
		Description: fmt.Sprintf("Upload file: %s", filePath),
		Details:     map[string]interface{}{"file_path": filePath},
		Risk:        action.RiskHigh,
		URL:         b.currentPageURL(ctx),
		Element:     el,
	}

	decision, err := b.RequestApproval(ctx, request)
	if err != nil {
		return err
	}
	if decision == action.Deny {
		log.Printf("file upload denied by user: %s", filePath)
		return b.denied(request)
	}
	log.Printf("file upload approved: %s", filePath)
	return nil
}

// CheckSendKeys gates dangerous keyboard shortcuts. The first matching entry
// of the shortcut table wins; chords not on the table pass silently.
func (b *Broker) CheckSendKeys(ctx context.Context, keys string) error {
	shortcut, ok := classifier.DetectShortcut(keys)
	if !ok {
		return nil
	}
	request := &action.Request{
		Type:        action.KeyboardShortcut,
		Description: fmt.Sprintf("Execute keyboard shortcut: %s (%s)", keys, shortcut.Description),
		Details: map[string]interface{}{
			"keys":   keys,
			"action": shortcut.Description,
		},
		Risk: action.RiskMedium,
		URL:  b.currentPageURL(ctx),
	}

	decision, err := b.RequestApproval(ctx, request)
	if err != nil {
		return err
	}
	if decision == action.Deny {
		log.Printf("keyboard shortcut denied by user: %s", keys)
		return b.denied(request)
	}
	log.Printf("keyboard shortcut approved: %s", keys)
	return nil
}

// DownloadEvent describes a completed file download.
type DownloadEvent struct {
	FileName string
	FileSize int64
	URL      string
	Path     string
}

// AuditDownload logs a completed download. Downloads are not preventable
// once the browser finishes them, only observable, so this never blocks.
func (b *Broker) AuditDownload(ctx context.Context, event DownloadEvent) {
	log.Printf("file downloaded: %s (%d bytes) from %s to %s",
		event.FileName, event.FileSize, event.URL, event.Path)
	b.publish(ctx, audit.TopicDownloadCompleted, map[string]interface{}{
		"fileName": event.FileName,
		"fileSize": event.FileSize,
		"url":      event.URL,
		"path":     event.Path,
	})
}
