package config

type TelegramConfig struct {
	ApiToken   string `yaml:"token"`
	Operator   int64  `yaml:"operator-id"`
	ManagerCht int64  `yaml:"manager-chat-id"`
}

func (t *TelegramConfig) Token() string {
	return t.ApiToken
}

// OperatorID is the only account allowed to submit rates.
func (t *TelegramConfig) OperatorID() int64 {
	return t.Operator
}

// ManagerChatID receives the confirmation report after rates are stored.
func (t *TelegramConfig) ManagerChatID() int64 {
	return t.ManagerCht
}
