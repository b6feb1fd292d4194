package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/deepchat-ai/deepchat/internal/verification"
)

type codeCopy struct {
	subject string
	action  string
}

var codeCopies = map[verification.Purpose]codeCopy{
	verification.PurposeRegister:      {subject: "注册验证码", action: "您正在注册账号"},
	verification.PurposePasswordReset: {subject: "重置密码验证码", action: "您正在重置密码"},
	verification.PurposeEmailChange:   {subject: "修改邮箱验证码", action: "您正在修改邮箱"},
	verification.PurposeLogin:         {subject: "登录验证码", action: "您正在使用验证码登录"},
}

var codeHTML = template.Must(template.New("code").Parse(`<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
  <h2 style="color: #0066cc;">{{.Subject}}</h2>
  <p>{{.Text}}</p>
  <p style="font-size: 24px; font-weight: bold; color: #0066cc; margin: 20px 0;">{{.Code}}</p>
  <p>此邮件由系统自动发送，请勿回复。</p>
</div>`))

// CodeMessage renders the verification email for purpose.
func CodeMessage(to string, purpose verification.Purpose, code string, ttl time.Duration) (OutboundEmail, error) {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes <= 0 {
		minutes = 10
	}
	cc, ok := codeCopies[purpose]
	var text string
	if ok {
		text = fmt.Sprintf("%s，验证码是: %s，有效期%d分钟。如非本人操作，请忽略此邮件。", cc.action, code, minutes)
	} else {
		cc.subject = "验证码"
		text = fmt.Sprintf("您的验证码是: %s，有效期%d分钟。", code, minutes)
	}
	var buf bytes.Buffer
	err := codeHTML.Execute(&buf, struct{ Subject, Text, Code string }{cc.subject, text, code})
	if err != nil {
		return OutboundEmail{}, fmt.Errorf("render code email: %w", err)
	}
	return OutboundEmail{
		To:      []string{to},
		Subject: cc.subject,
		Body:    buf.String(),
		Text:    text,
		HTML:    true,
	}, nil
}
