// Package notifier envia alertas de queda de preço pelo Telegram. Sem token
// configurado, o notificador é nulo e o monitor segue sem alertas.
package notifier

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"catalogo-precos/internal/ingest"
)

// Notifier publica quedas de preço num chat do Telegram.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// New conecta ao Telegram. Token vazio desliga os alertas e retorna nil sem
// erro.
func New(token string, chatID int64) (*Notifier, error) {
	if token == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("conectar ao telegram: %w", err)
	}
	log.Printf("[notifier] autorizado como %s", bot.Self.UserName)
	return &Notifier{bot: bot, chatID: chatID}, nil
}

// NotifyDrops envia uma mensagem por queda de preço. Falhas de envio são
// logadas e não propagam: alerta perdido não é erro de ingestão.
func (n *Notifier) NotifyDrops(drops []ingest.PriceDrop) {
	if n == nil {
		return
	}
	for _, d := range drops {
		text := fmt.Sprintf("O preço baixou! 📉\n\n%s\nDe %.2f por %.2f (%s)\n%s",
			d.Name, d.From, d.To, d.Source, d.ProductURL)
		msg := tgbotapi.NewMessage(n.chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			log.Printf("[notifier] envio falhou: %v", err)
		}
	}
}
