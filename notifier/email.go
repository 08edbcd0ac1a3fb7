package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"cine-shelf/catalog"
	"cine-shelf/storage"

	"github.com/rs/zerolog/log"
	gomail "gopkg.in/mail.v2"
)

// Sender delivers a prepared message. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier handles sending email notifications
type EmailNotifier struct {
	senderEmail    string
	recipientEmail string
	htmlTemplate   *template.Template
	sender         Sender
	now            func() time.Time
}

// EmailConfig contains configuration for email notifications
type EmailConfig struct {
	SMTPHost       string
	SMTPPort       int
	SenderEmail    string
	SenderPassword string
	RecipientEmail string
}

// Enabled reports whether enough is configured to send mail.
func (c EmailConfig) Enabled() bool {
	return c.SMTPHost != "" && c.RecipientEmail != ""
}

const digestTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Cine Shelf - Catalog Digest</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; }
        h1 { color: #e50914; }
        h2 { color: #0071c5; margin-top: 30px; }
        table { width: 100%; border-collapse: collapse; margin-bottom: 20px; }
        th { background-color: #f4f4f4; text-align: left; padding: 10px; }
        td { padding: 10px; border-bottom: 1px solid #ddd; }
        .footer { font-size: 12px; color: #666; margin-top: 50px; text-align: center; }
        .count { font-weight: bold; color: #e50914; }
    </style>
</head>
<body>
    <h1>Cine Shelf - Catalog Digest</h1>
    <p>Catalog summary as of {{.Date}}.</p>

    <p>Total movies: <span class="count">{{.Stats.Count}}</span></p>
    <p>Average rating: {{printf "%.2f" .Stats.Mean}} &middot; Median rating: {{printf "%.2f" .Stats.Median}}</p>
    <p>Highest rated ({{.Stats.Highest.Rating}}): {{join .Stats.Highest.Titles}}</p>
    <p>Lowest rated ({{.Stats.Lowest.Rating}}): {{join .Stats.Lowest.Titles}}</p>

    {{if .Changes}}
    <h2>Rating changes ({{len .Changes}})</h2>
    <table>
        <tr><th>Title</th><th>Old</th><th>New</th></tr>
        {{range .Changes}}
        <tr><td>{{.Title}}</td><td>{{.OldRating}}</td><td>{{.NewRating}}</td></tr>
        {{end}}
    </table>
    {{end}}

    <h2>Movies ({{len .Movies}})</h2>
    <table>
        <tr><th>Title</th><th>Year</th><th>Rating</th></tr>
        {{range .Movies}}
        <tr><td>{{.Title}}</td><td>{{.Year}}</td><td>{{.Rating}}/10</td></tr>
        {{end}}
    </table>

    <div class="footer">
        <p>This is an automated email from Cine Shelf. Please do not reply.</p>
    </div>
</body>
</html>
`

// RatingChange records a rating that moved during a refresh.
type RatingChange struct {
	Title     string
	OldRating float64
	NewRating float64
}

// NewEmailNotifier creates a new email notifier that sends through SMTP.
func NewEmailNotifier(config EmailConfig) (*EmailNotifier, error) {
	return NewEmailNotifierWithSender(config, gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.SenderEmail, config.SenderPassword))
}

// NewEmailNotifierWithSender creates a notifier that hands messages to sender.
func NewEmailNotifierWithSender(config EmailConfig, sender Sender) (*EmailNotifier, error) {
	tmpl, err := template.New("email").Funcs(template.FuncMap{
		"join": joinTitles,
	}).Parse(digestTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}

	return &EmailNotifier{
		senderEmail:    config.SenderEmail,
		recipientEmail: config.RecipientEmail,
		htmlTemplate:   tmpl,
		sender:         sender,
		now:            time.Now,
	}, nil
}

// NotifyCatalogDigest sends the catalog summary, listing every movie sorted
// by rating and any rating changes from the last refresh.
func (n *EmailNotifier) NotifyCatalogDigest(stats catalog.Stats, movies []storage.Movie, changes []RatingChange) error {
	if len(movies) == 0 {
		log.Info().Msg("No movies to report, skipping digest")
		return nil
	}

	if n.recipientEmail == "" {
		log.Info().Msg("No recipient email configured, skipping notification")
		return nil
	}

	m, err := n.buildMessage(stats, movies, changes)
	if err != nil {
		return err
	}

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Info().Str("recipient", n.recipientEmail).Int("movies", len(movies)).Msg("Catalog digest sent")
	return nil
}

func (n *EmailNotifier) buildMessage(stats catalog.Stats, movies []storage.Movie, changes []RatingChange) (*gomail.Message, error) {
	data := struct {
		Date    string
		Stats   catalog.Stats
		Movies  []storage.Movie
		Changes []RatingChange
	}{
		Date:    n.now().Format("January 2, 2006 at 3:04 PM"),
		Stats:   stats,
		Movies:  movies,
		Changes: changes,
	}

	var emailBody bytes.Buffer
	if err := n.htmlTemplate.Execute(&emailBody, data); err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.senderEmail)
	m.SetHeader("To", n.recipientEmail)
	m.SetHeader("Subject", fmt.Sprintf("Cine Shelf: %d Movies, %d Rating Changes", stats.Count, len(changes)))

	plainText := fmt.Sprintf(
		"Cine Shelf Catalog Digest\n\n"+
			"Summary as of %s.\n"+
			"Total movies: %d\n"+
			"Average rating: %.2f\n"+
			"Median rating: %.2f\n"+
			"Highest rated: %s\n"+
			"Lowest rated: %s\n"+
			"Rating changes: %d\n\n"+
			"This is an automated email from Cine Shelf. Please do not reply.",
		data.Date, stats.Count, stats.Mean, stats.Median,
		joinTitles(stats.Highest.Titles), joinTitles(stats.Lowest.Titles), len(changes))

	m.SetBody("text/plain", plainText)
	m.AddAlternative("text/html", emailBody.String())
	return m, nil
}

func joinTitles(titles []string) string {
	return strings.Join(titles, ", ")
}
