package mailimport

import "testing"

const sampleBody = `You have a new enquiry from your website.

**form_id:** 8842
**Lead Id:** LD-20260114-07
**Name:** Olena Kovalenko
**Phone Number:** 067 123 45 67
**Source:** facebook_ads

Message: interested in the spring catalogue.`

func TestIsLeadEmailBySubject(t *testing.T) {
	if !isLeadEmail("New Lead from landing page", "forms@site.example", "hello") {
		t.Fatal("expected subject keyword to qualify the email")
	}
	if !isLeadEmail("Нова заявка з сайту", "forms@site.example", "hello") {
		t.Fatal("expected localized subject keyword to qualify the email")
	}
}

func TestIsLeadEmailByBodyStructure(t *testing.T) {
	if !isLeadEmail("fwd: website", "forms@site.example", sampleBody) {
		t.Fatal("expected three structural markers to qualify the email")
	}
	if isLeadEmail("fwd: website", "forms@site.example", "Name: Bob\nsee you") {
		t.Fatal("a single marker should not qualify the email")
	}
}

func TestIsLeadEmailRejectsMarketing(t *testing.T) {
	if isLeadEmail("New Lead inside!", "forms@site.example", sampleBody+"\n\nClick here to unsubscribe") {
		t.Fatal("expected marketing footer to disqualify the email")
	}
	if isLeadEmail("New Lead", "noreply@blast.example", sampleBody) {
		t.Fatal("expected robot sender to disqualify the email")
	}
}

func TestExtractLead(t *testing.T) {
	d, ok := extractLead(sampleBody)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if d.FullName != "Olena Kovalenko" {
		t.Fatalf("full name = %q", d.FullName)
	}
	if d.Phone != "380671234567" {
		t.Fatalf("phone = %q, want normalized digits", d.Phone)
	}
	if d.LeadID != "LD-20260114-07" {
		t.Fatalf("lead id = %q", d.LeadID)
	}
	if d.FormID != "8842" {
		t.Fatalf("form id = %q", d.FormID)
	}
	if d.Source != "facebook_ads" {
		t.Fatalf("source = %q", d.Source)
	}
}

func TestExtractLeadBareLabels(t *testing.T) {
	body := "form_id: 10\nLead Id: L-1\nName: Ivan Franko\nPhone: +380501112233\n"
	d, ok := extractLead(body)
	if !ok {
		t.Fatal("expected bare labels to be accepted")
	}
	if d.FullName != "Ivan Franko" {
		t.Fatalf("full name = %q", d.FullName)
	}
	if d.Phone != "380501112233" {
		t.Fatalf("phone = %q", d.Phone)
	}
}

func TestExtractLeadMissingRequiredField(t *testing.T) {
	body := "form_id: 10\nName: Ivan Franko\nPhone: 380501112233\n"
	if _, ok := extractLead(body); ok {
		t.Fatal("expected extraction to fail without a lead id")
	}
}
