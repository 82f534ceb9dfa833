package config

// DefaultClassificationRules covers the common PII shapes the classifier
// detects out of the box.
func DefaultClassificationRules() []ClassificationRule {
	return []ClassificationRule{
		{
			Name:        "credit_card",
			Pattern:     `\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`,
			Level:       HighlySensitive,
			Description: "Credit card number",
		},
		{
			Name:        "ssn",
			Pattern:     `\b\d{3}-\d{2}-\d{4}\b`,
			Level:       HighlySensitive,
			Description: "Social Security Number",
		},
		{
			Name:        "email",
			Pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`,
			Level:       Sensitive,
			Description: "Email address",
		},
		{
			Name:        "phone",
			Pattern:     `\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`,
			Level:       Sensitive,
			Description: "Phone number",
		},
		{
			Name:        "api_key",
			Pattern:     `\b[A-Za-z0-9_-]{32,}\b`,
			Level:       HighlySensitive,
			Description: "API key or token",
		},
	}
}

// DefaultDangerousCommands are regexes the interceptor applies to each
// sub-command of a shell invocation (anchors match after shell separators,
// not only at the start of the whole command line).
func DefaultDangerousCommands() []string {
	return []string{
		`^rm\s+-[a-z]*[rf]`,
		`^dd\s+if=`,
		`^mkfs\b`,
		`:\(\)\s*\{\s*:\|:\s*&\s*\}\s*;\s*:`, // fork bomb
		`^curl\s`,
		`^wget\s`,
		`^(nc|netcat|ncat)\s`,
		`^telnet\s`,
		`^(ssh|scp|sftp|ftp|rsync)\s`,
		`^python3?\s+-m\s+http`,
		`^(nslookup|dig)\s`,
		`^base64\s`,
	}
}
