package config

import "github.com/JakeFAU/jobingest/internal/jobs"

// DefaultSites returns the built-in Angolan job boards used when the config
// file lists no sites.
func DefaultSites() []jobs.SiteConfig {
	return []jobs.SiteConfig{
		{
			// WordPress with WP Job Manager.
			Name:         "AngoEmprego.com",
			BaseURL:      "https://angoemprego.com",
			ListURL:      "https://angoemprego.com/vagas",
			CardSelector: "li.job_listing, article.job_listing, .job_listing",
			Fields: map[string]string{
				jobs.FieldTitle:    "h3.job-title, h3, .position, .title",
				jobs.FieldCompany:  ".company strong, .company-name, strong.company, .company, .employer",
				jobs.FieldLocation: ".location, .job-location, span.location, .city",
				jobs.FieldLink:     "a",
			},
			Detail: jobs.DetailPageConfig{
				Enabled:      true,
				Description:  ".job_description, .single-job-description, .entry-content",
				Requirements: ".job_description ul, .entry-content ul",
			},
			RequestDelay: 1.5,
		},
		{
			// Plain WordPress; postings are blog articles.
			Name:         "AngoVagas.net",
			BaseURL:      "https://angovagas.net",
			ListURL:      "https://angovagas.net",
			CardSelector: "article.post, article.type-post, .post",
			Fields: map[string]string{
				jobs.FieldTitle:       "h2.entry-title, h1.entry-title, .post-title, h2",
				jobs.FieldCompany:     ".company, .empresa, .entry-meta .author, .author",
				jobs.FieldLocation:    ".location, .cidade, .entry-meta",
				jobs.FieldDescription: ".entry-summary, .excerpt, p",
				jobs.FieldLink:        "a",
			},
			Detail: jobs.DetailPageConfig{
				Enabled:      true,
				Description:  ".entry-content, .post-content, article .content",
				Requirements: ".entry-content ul, .post-content ul",
			},
			RequestDelay: 1.0,
		},
	}
}
