// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-lpc/ctg/coinc"
	mail "gopkg.in/gomail.v2"
)

const maxAlerts = 5

// health periodically checks the GPIO backend of a controller and sends
// mail alerts when it reports a failure.
type health struct {
	ctl  *coinc.Controller
	freq time.Duration

	alerts int
	send   func(subject, body string) error
}

func newHealth(ctl *coinc.Controller, freq time.Duration) *health {
	return &health{
		ctl:  ctl,
		freq: freq,
		send: alertMail,
	}
}

func (h *health) run(ctx context.Context) {
	if h.freq <= 0 {
		<-ctx.Done()
		return
	}

	tick := time.NewTicker(h.freq)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			h.check()
		}
	}
}

func (h *health) check() {
	err := h.ctl.Err()
	if err == nil {
		return
	}
	h.alert(err)
}

func (h *health) alert(err error) {
	log.Printf("GPIO backend failure (profile=%s): %+v", h.ctl.Profile().Name, err)
	h.alerts++

	if h.alerts < maxAlerts {
		st := h.ctl.State()
		subject := fmt.Sprintf("[ctg-svc] GPIO alert: %s", h.ctl.Profile().Name)
		body := fmt.Sprintf(
			"error: %+v\nbucket: %d\nwindow: %v ps\nlaser: %v\npaused: %v\nfreq: %v",
			err, st.Bucket, st.Window, st.LaserTrig, st.TriggerPaused, h.freq,
		)
		err := h.send(subject, body)
		if err != nil {
			log.Printf("could not send mail alert: %+v", err)
		}
	}
}

var (
	alertMailUsr  = os.Getenv("MAIL_USERNAME")
	alertMailPwd  = os.Getenv("MAIL_PASSWORD")
	alertMailSrv  = os.Getenv("MAIL_SERVER")
	alertMailPort = atoi(os.Getenv("MAIL_PORT"))
	alertMailTgts = targets(os.Getenv("MAIL_TGTS"))
)

func alertMail(subject, body string) error {
	if alertMailUsr == "" || alertMailPwd == "" ||
		alertMailSrv == "" || alertMailPort == 0 ||
		len(alertMailTgts) == 0 {
		return fmt.Errorf("missing mail credentials")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", alertMailUsr)
	msg.SetHeader("Bcc", alertMailTgts...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dial := mail.NewDialer(alertMailSrv, alertMailPort, alertMailUsr, alertMailPwd)
	dial.TLSConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	return dial.DialAndSend(msg)
}

func targets(s string) []string {
	var tgts []string
	for _, tgt := range strings.Split(s, ",") {
		tgt = strings.TrimSpace(tgt)
		if tgt == "" {
			continue
		}
		tgts = append(tgts, tgt)
	}
	return tgts
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
