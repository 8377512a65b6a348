package email

import (
	"fmt"
	"strings"
	"time"

	"github.com/tbessard/devismail/internal/domain"
)

// =============================================================================
// Template Options
// =============================================================================

// Default branding applied when an option is left empty.
const (
	DefaultCompanyName    = "Pièces Auto Distrib"
	DefaultSubject        = "Réponse à votre demande de devis"
	DefaultBrandColor     = "#13293d"
	DefaultPrimaryColor   = "#e8871e"
	DefaultSecondaryColor = "#f4f6f8"
	DefaultTextColor      = "#2b2b2b"
	DefaultWebsiteURL     = "https://www.piecesautodistrib.fr"
	DefaultSupportEmail   = "contact@piecesautodistrib.fr"
)

// Branding is the static portion of ReplyOptions, configured once per
// deployment.
type Branding struct {
	CompanyName    string
	LogoURL        string
	BrandColor     string
	PrimaryColor   string
	SecondaryColor string
	TextColor      string
	WebsiteURL     string
	SupportEmail   string
	ReplyURL       string
}

// Options seeds a ReplyOptions with the branding fields; the dispatch
// service fills in the per-reply payload.
func (b Branding) Options() ReplyOptions {
	return ReplyOptions{
		CompanyName:    b.CompanyName,
		LogoURL:        b.LogoURL,
		BrandColor:     b.BrandColor,
		PrimaryColor:   b.PrimaryColor,
		SecondaryColor: b.SecondaryColor,
		TextColor:      b.TextColor,
		WebsiteURL:     b.WebsiteURL,
		SupportEmail:   b.SupportEmail,
		ReplyURL:       b.ReplyURL,
	}
}

// ReplyOptions configures one rendered reply email. Every field is
// optional; empty fields fall back to the defaults above or render nothing.
type ReplyOptions struct {
	CompanyName    string
	LogoURL        string
	BrandColor     string // Header background
	PrimaryColor   string // Accents (offer border, links)
	SecondaryColor string // Offer block background
	TextColor      string

	Subject string
	ToName  string
	Message string

	WebsiteURL   string
	SupportEmail string

	Details     *domain.OfferDetails
	CompanyInfo *domain.CompanyInfo

	ReplyNotice  string
	ReplyURL     string
	ReplyContact *domain.ReplyOptions
}

// withDefaults returns a copy of o with empty branding fields filled in.
func (o ReplyOptions) withDefaults() ReplyOptions {
	if o.CompanyName == "" {
		o.CompanyName = DefaultCompanyName
	}
	if o.BrandColor == "" {
		o.BrandColor = DefaultBrandColor
	}
	if o.PrimaryColor == "" {
		o.PrimaryColor = DefaultPrimaryColor
	}
	if o.SecondaryColor == "" {
		o.SecondaryColor = DefaultSecondaryColor
	}
	if o.TextColor == "" {
		o.TextColor = DefaultTextColor
	}
	if o.Subject == "" {
		o.Subject = DefaultSubject
	}
	if o.WebsiteURL == "" {
		o.WebsiteURL = DefaultWebsiteURL
	}
	if o.SupportEmail == "" {
		o.SupportEmail = DefaultSupportEmail
	}
	return o
}

// =============================================================================
// HTML Builder
// =============================================================================

// BuildReplyHTML renders a reply as a complete, self-contained HTML
// document suitable for direct use as an email body.
//
// The builder is pure: no I/O, deterministic for given options except for
// the current year in the footer. All user-supplied text is escaped;
// structured sections render only when their data is present.
func BuildReplyHTML(opts ReplyOptions) string {
	o := opts.withDefaults()

	var b strings.Builder
	b.Grow(4096)

	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString(`<html lang="fr">` + "\n<head>\n")
	b.WriteString(`<meta charset="utf-8">` + "\n")
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1.0">` + "\n")
	b.WriteString("<title>" + escapeText(o.Subject) + "</title>\n")
	writeStyleBlock(&b, o)
	b.WriteString("</head>\n<body>\n")
	b.WriteString(`<div class="container">` + "\n")

	writeHeader(&b, o)

	b.WriteString(`<div class="content">` + "\n")
	writeGreeting(&b, o)
	b.WriteString(`<p class="message">` + nl2br(o.Message) + "</p>\n")
	writeOfferBlock(&b, o)
	writeItemsTable(&b, o.Details)
	writeTestsList(&b, o.Details)
	writeDefectBlock(&b, o.Details)
	writeReplyBlock(&b, o)
	writeSignature(&b, o.CompanyInfo)
	b.WriteString("</div>\n")

	writeFooter(&b, o)

	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}

// writeStyleBlock emits the inline stylesheet; the document depends on no
// external stylesheet.
func writeStyleBlock(b *strings.Builder, o ReplyOptions) {
	fmt.Fprintf(b, `<style>
body { margin: 0; padding: 0; background-color: #ffffff; font-family: Arial, Helvetica, sans-serif; color: %s; }
.container { max-width: 600px; margin: 0 auto; }
.header { padding: 24px; text-align: center; }
.header h1 { margin: 8px 0 0; font-size: 20px; color: #ffffff; }
.header img { max-height: 48px; }
.content { padding: 24px; font-size: 14px; line-height: 1.6; }
.content h2 { font-size: 16px; margin: 0 0 12px; }
.content h3 { font-size: 14px; margin: 16px 0 8px; }
table.parts { width: 100%%; border-collapse: collapse; margin: 16px 0; font-size: 13px; }
table.parts th, table.parts td { border: 1px solid #d9dee3; padding: 6px 8px; text-align: left; }
table.parts th { background-color: %s; }
ul.tests { margin: 8px 0; padding-left: 20px; }
.defect { margin: 16px 0; }
.reply-block { margin: 16px 0; padding: 12px 16px; background-color: %s; border-radius: 4px; }
.signature { margin-top: 24px; padding-top: 12px; border-top: 1px solid #d9dee3; font-size: 13px; }
.footer { padding: 16px 24px; font-size: 12px; color: #6b7280; text-align: center; }
.footer a { color: %s; }
</style>
`, o.TextColor, o.SecondaryColor, o.SecondaryColor, o.PrimaryColor)
}

func writeHeader(b *strings.Builder, o ReplyOptions) {
	fmt.Fprintf(b, `<div class="header" style="%s">`+"\n",
		styleAttr([]cssDecl{{"background-color", o.BrandColor}}))
	if o.LogoURL != "" {
		fmt.Fprintf(b, `<img src="%s" alt="%s">`+"\n",
			escapeText(o.LogoURL), escapeText(o.CompanyName))
	}
	b.WriteString("<h1>" + escapeText(o.CompanyName) + "</h1>\n</div>\n")
}

// writeGreeting renders the "Bonjour, {name}" line unless the message
// already opens with a greeting word or no recipient name was supplied.
func writeGreeting(b *strings.Builder, o ReplyOptions) {
	if o.ToName == "" || startsWithGreeting(o.Message) {
		return
	}
	b.WriteString(`<p class="greeting">Bonjour, ` + escapeText(o.ToName) + "</p>\n")
}

// writeOfferBlock renders the price/mileage/delivery/reference section.
// The block's style attribute is assembled once from an ordered
// declaration list; the base declarations merge with the computed colors
// before serialization.
func writeOfferBlock(b *strings.Builder, o ReplyOptions) {
	d := o.Details
	if d == nil || (d.Price == "" && d.MileageKm == "" && d.Delivery == "" && d.Reference == "") {
		return
	}

	style := styleAttr([]cssDecl{
		{"margin", "16px 0"},
		{"padding", "12px 16px"},
		{"background-color", o.SecondaryColor},
		{"border-left", "4px solid " + o.PrimaryColor},
		{"border-radius", "4px"},
	})

	fmt.Fprintf(b, `<div class="offer" style="%s">`+"\n", style)
	b.WriteString("<h2>Détails de l'offre</h2>\n")
	if d.Price != "" {
		b.WriteString("<p><strong>Prix :</strong> " + formatPrice(d.Price) + "</p>\n")
	}
	if d.MileageKm != "" {
		b.WriteString("<p><strong>Kilométrage :</strong> " + formatMileage(d.MileageKm) + "</p>\n")
	}
	if d.Delivery != "" {
		b.WriteString("<p><strong>Livraison :</strong> " + escapeText(d.Delivery) + "</p>\n")
	}
	if d.Reference != "" {
		b.WriteString("<p><strong>Référence :</strong> " + escapeText(d.Reference) + "</p>\n")
	}
	b.WriteString("</div>\n")
}

// writeItemsTable renders one row per offer item. Absent sub-fields render
// as an em-dash placeholder; prices follow the price formatting rule.
func writeItemsTable(b *strings.Builder, d *domain.OfferDetails) {
	if d == nil || len(d.Items) == 0 {
		return
	}

	b.WriteString(`<table class="parts">` + "\n")
	b.WriteString("<tr><th>Pièce</th><th>Référence</th><th>Prix</th><th>Garantie</th><th>Disponibilité</th></tr>\n")
	for _, item := range d.Items {
		price := "—"
		if strings.TrimSpace(item.Price) != "" {
			price = formatPrice(item.Price)
		}
		fmt.Fprintf(b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			orDash(item.Product),
			orDash(item.Reference),
			price,
			orDash(item.Warranty),
			orDash(item.Availability),
		)
	}
	b.WriteString("</table>\n")
}

func writeTestsList(b *strings.Builder, d *domain.OfferDetails) {
	if d == nil || len(d.TestsPerformed) == 0 {
		return
	}
	b.WriteString("<h3>Tests effectués</h3>\n<ul class=\"tests\">\n")
	for _, test := range d.TestsPerformed {
		b.WriteString("<li>" + escapeText(test) + "</li>\n")
	}
	b.WriteString("</ul>\n")
}

func writeDefectBlock(b *strings.Builder, d *domain.OfferDetails) {
	if d == nil || d.DefectObserved == "" {
		return
	}
	b.WriteString(`<div class="defect">` + "\n")
	b.WriteString("<h3>Défaut constaté</h3>\n")
	b.WriteString("<p>" + nl2br(d.DefectObserved) + "</p>\n")
	b.WriteString("</div>\n")
}

// writeReplyBlock renders how the recipient should respond: a notice, a
// reply link, and/or direct contact channels.
func writeReplyBlock(b *strings.Builder, o ReplyOptions) {
	hasContact := !o.ReplyContact.Empty()
	if o.ReplyNotice == "" && o.ReplyURL == "" && !hasContact {
		return
	}

	b.WriteString(`<div class="reply-block">` + "\n")
	if o.ReplyNotice != "" {
		b.WriteString("<p>" + escapeText(o.ReplyNotice) + "</p>\n")
	}
	if o.ReplyURL != "" {
		fmt.Fprintf(b, `<p><a href="%s">Répondre à ce devis</a></p>`+"\n", escapeText(o.ReplyURL))
	}
	if hasContact {
		if o.ReplyContact.Phone != "" {
			fmt.Fprintf(b, `<p>Téléphone : <a href="tel:%s">%s</a></p>`+"\n",
				escapeText(phoneDigits(o.ReplyContact.Phone)), escapeText(o.ReplyContact.Phone))
		}
		if o.ReplyContact.WhatsApp != "" {
			fmt.Fprintf(b, `<p>WhatsApp : <a href="https://wa.me/%s">%s</a></p>`+"\n",
				escapeText(phoneDigits(o.ReplyContact.WhatsApp)), escapeText(o.ReplyContact.WhatsApp))
		}
	}
	b.WriteString("</div>\n")
}

func writeSignature(b *strings.Builder, info *domain.CompanyInfo) {
	if info.Empty() {
		return
	}
	b.WriteString(`<div class="signature">` + "\n")
	if info.Name != "" {
		b.WriteString("<p><strong>" + escapeText(info.Name) + "</strong></p>\n")
	}
	if info.Address != "" {
		b.WriteString("<p>" + escapeText(info.Address) + "</p>\n")
	}
	if info.Phone != "" {
		b.WriteString("<p>Tél. " + escapeText(info.Phone) + "</p>\n")
	}
	if info.TaxID != "" {
		b.WriteString("<p>SIRET " + escapeText(info.TaxID) + "</p>\n")
	}
	if info.SocialLink != "" {
		fmt.Fprintf(b, `<p><a href="%s">Suivez-nous</a></p>`+"\n", escapeText(info.SocialLink))
	}
	b.WriteString("</div>\n")
}

func writeFooter(b *strings.Builder, o ReplyOptions) {
	b.WriteString(`<div class="footer">` + "\n")
	fmt.Fprintf(b, "<p>© %d %s</p>\n", time.Now().Year(), escapeText(o.CompanyName))
	fmt.Fprintf(b, `<p><a href="%s">%s</a> · <a href="mailto:%s">%s</a></p>`+"\n",
		escapeText(o.WebsiteURL), escapeText(o.WebsiteURL),
		escapeText(o.SupportEmail), escapeText(o.SupportEmail))
	b.WriteString("</div>\n")
}

// phoneDigits strips a phone number down to the characters valid in a
// tel:/wa.me link.
func phoneDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// =============================================================================
// Plain Text Fallback
// =============================================================================

// BuildReplyText renders the plain-text alternative for the same options.
func BuildReplyText(opts ReplyOptions) string {
	o := opts.withDefaults()

	var b strings.Builder
	if o.ToName != "" && !startsWithGreeting(o.Message) {
		b.WriteString("Bonjour, " + o.ToName + "\n\n")
	}
	b.WriteString(o.Message + "\n")

	if d := o.Details; !d.Empty() {
		b.WriteString("\n")
		if d.Price != "" {
			b.WriteString("Prix : " + textNumber(formatPrice(d.Price)) + "\n")
		}
		if d.MileageKm != "" {
			b.WriteString("Kilométrage : " + textNumber(formatMileage(d.MileageKm)) + "\n")
		}
		if d.Delivery != "" {
			b.WriteString("Livraison : " + d.Delivery + "\n")
		}
		if d.Reference != "" {
			b.WriteString("Référence : " + d.Reference + "\n")
		}
		for _, item := range d.Items {
			b.WriteString("- " + item.Product)
			if item.Price != "" {
				b.WriteString(" : " + textNumber(formatPrice(item.Price)))
			}
			b.WriteString("\n")
		}
		if len(d.TestsPerformed) > 0 {
			b.WriteString("Tests effectués : " + strings.Join(d.TestsPerformed, ", ") + "\n")
		}
		if d.DefectObserved != "" {
			b.WriteString("Défaut constaté : " + d.DefectObserved + "\n")
		}
	}

	if o.ReplyNotice != "" {
		b.WriteString("\n" + o.ReplyNotice + "\n")
	}
	if o.ReplyURL != "" {
		b.WriteString("\n" + o.ReplyURL + "\n")
	}

	b.WriteString("\n--\n" + o.CompanyName + "\n" + o.WebsiteURL + "\n")
	return b.String()
}

// textNumber undoes HTML escaping for the plain-text body; the formatting
// helpers escape for HTML by contract.
func textNumber(s string) string {
	r := strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&#34;", `"`, "&#39;", "'")
	return r.Replace(s)
}
