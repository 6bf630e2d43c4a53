package exchange

import "github.com/krobus00/trading-client/internal/entity"

var (
	GlobalExchangeRegistry = make(map[entity.ExchangeName]entity.Exchange)
)

func RegisterExchange(name entity.ExchangeName, exchange entity.Exchange) {
	GlobalExchangeRegistry[name] = exchange
}

func GetExchange(name entity.ExchangeName) (entity.Exchange, bool) {
	exchange, ok := GlobalExchangeRegistry[name]
	return exchange, ok
}
