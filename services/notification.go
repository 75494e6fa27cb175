package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"receipt-split-backend/config"
	"receipt-split-backend/models"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"google.golang.org/api/option"
)

type NotificationService struct {
	messaging *messaging.Client
}

var (
	notifOnce    sync.Once
	notifService *NotificationService
)

func GetNotificationService() *NotificationService {
	notifOnce.Do(func() {
		notifService = &NotificationService{}
		notifService.initFirebase()
	})
	return notifService
}

func (ns *NotificationService) initFirebase() {
	ctx := context.Background()

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(config.AppConfig.FirebaseCredPath))
	if err != nil {
		log.Println("⚠️  Firebase not configured, push notifications disabled:", err)
		return
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		log.Println("⚠️  Firebase messaging unavailable:", err)
		return
	}

	ns.messaging = client
	log.Println("✅ Firebase messaging initialized")
}

// ============================================================
// PUSH NOTIFICATIONS via Firebase Admin SDK
// ============================================================

func (ns *NotificationService) sendPush(fcmToken string, title string, body string, data map[string]string) {
	if ns.messaging == nil || fcmToken == "" {
		return
	}

	msg := &messaging.Message{
		Token: fcmToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := ns.messaging.Send(context.Background(), msg); err != nil {
		log.Printf("❌ Push send error: %v", err)
		return
	}
	log.Printf("✅ Push sent: %s", title)
}

// ============================================================
// EMAIL via SendGrid
// ============================================================

func (ns *NotificationService) sendEmail(toEmail string, toName string, subject string, htmlBody string) {
	if config.AppConfig.SendGridAPIKey == "" || toEmail == "" {
		return
	}

	from := mail.NewEmail(config.AppConfig.AppName, config.AppConfig.SendGridFrom)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, subject, htmlBody)

	client := sendgrid.NewSendClient(config.AppConfig.SendGridAPIKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("❌ Email send error: %v", err)
		return
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Printf("✅ Email sent to %s", toEmail)
	} else {
		log.Printf("⚠️  SendGrid returned status: %d", resp.StatusCode)
	}
}

// ============================================================
// NOTIFICATION EVENTS
// ============================================================

// NotifyReceiptAnalyzed pushes to the owner once extraction finishes
func (ns *NotificationService) NotifyReceiptAnalyzed(owner models.User, receipt models.Receipt, itemCount int) {
	title := "Receipt analyzed"
	body := fmt.Sprintf("%s: %d items, %s %.2f total", receipt.RestaurantName, itemCount, receipt.Currency, receipt.TotalAmount)

	ns.sendPush(owner.FCMToken, title, body, map[string]string{
		"type":       "receipt_analyzed",
		"receipt_id": receipt.ID.String(),
	})
}

// NotifySplitComputed sends push + email with the split breakdown to the receipt owner
func (ns *NotificationService) NotifySplitComputed(owner models.User, receipt models.Receipt, summary models.SplitSummary) {
	title := fmt.Sprintf("Split ready for %s", receipt.RestaurantName)
	body := fmt.Sprintf("%d people owe a share of %s %.2f", len(summary), receipt.Currency, receipt.TotalAmount)

	ns.sendPush(owner.FCMToken, title, body, map[string]string{
		"type":       "split_computed",
		"receipt_id": receipt.ID.String(),
	})

	htmlBody := buildSplitEmailHTML(owner.Name, receipt, summary)
	ns.sendEmail(owner.Email, owner.Name, title, htmlBody)
}

// ============================================================
// EMAIL TEMPLATES
// ============================================================

func buildSplitEmailHTML(ownerName string, receipt models.Receipt, summary models.SplitSummary) string {
	tmpl := `
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #1DB954; margin-top: 0;">🧾 Bill Split Ready</h2>
		<p>Hi <strong>{{.OwnerName}}</strong>,</p>
		<p>Here is the split for <strong>{{.RestaurantName}}</strong> ({{.Currency}} {{printf "%.2f" .TotalAmount}}):</p>
		{{range .Friends}}
		<div style="background: #f8f9fa; border-radius: 8px; padding: 16px; margin: 16px 0;">
			<p style="margin: 4px 0; font-size: 18px;"><strong>{{.Name}}</strong> owes <strong>{{$.Currency}} {{printf "%.2f" .TotalAmount}}</strong></p>
			{{range .Items}}
			<p style="margin: 4px 0; color: #666;">{{.ItemName}} × {{.Quantity}} — {{$.Currency}} {{printf "%.2f" .Amount}} (+{{printf "%.2f" .Tax}} tax)</p>
			{{end}}
		</div>
		{{end}}
		<p style="color: #999; font-size: 12px; margin-top: 24px;">— {{.AppName}}</p>
	</div>
</body>
</html>`

	friends := make([]*models.FriendSummary, 0, len(summary))
	for _, entry := range summary {
		friends = append(friends, entry)
	}

	t, _ := template.New("split").Parse(tmpl)
	var buf bytes.Buffer
	t.Execute(&buf, map[string]interface{}{
		"OwnerName":      ownerName,
		"RestaurantName": receipt.RestaurantName,
		"Currency":       receipt.Currency,
		"TotalAmount":    receipt.TotalAmount,
		"Friends":        friends,
		"AppName":        config.AppConfig.AppName,
	})
	return buf.String()
}
