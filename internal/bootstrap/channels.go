// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"github.com/sirupsen/logrus"

	"github.com/gymkeeper/retention-engine/internal/config"
	"github.com/gymkeeper/retention-engine/pkg/channel"
)

// InitChannelRegistry registers one HTTP sender per configured provider.
// Channels without a provider URL stay unregistered; dispatch on such a
// channel fails the individual intervention, not the boot.
func InitChannelRegistry(cfg *config.Config) *channel.Registry {
	registry := channel.NewRegistry()

	providers := []struct {
		ch  channel.Channel
		url string
	}{
		{channel.Email, cfg.EmailProviderURL},
		{channel.SMS, cfg.SMSProviderURL},
		{channel.WhatsApp, cfg.WhatsAppProviderURL},
	}

	for _, p := range providers {
		if p.url == "" {
			logrus.Warnf("no provider URL configured for channel %s, leaving unregistered", p.ch)
			continue
		}
		registry.Register(channel.NewHTTPSender(channel.HTTPSenderConfig{
			Channel:  p.ch,
			Endpoint: p.url,
			APIKey:   cfg.ProviderAPIKey,
		}))
	}

	logrus.Infof("registered %d channel senders", registry.Count())
	return registry
}
