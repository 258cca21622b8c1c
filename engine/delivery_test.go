package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"encorecrm/models"
)

func TestDeliverBothChannels(t *testing.T) {
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	d := newTestDelivery(email, sms)

	lead := &models.Lead{DirectorEmail: "s.chen@lincolnhigh.edu", DirectorPhone: "+15555550123"}
	lead.ID = 7
	content := RenderedContent{Subject: "sub", Body: "body", SMS: "short"}

	result := d.Deliver(context.Background(), lead, content, "follow_up")

	assert.True(t, result.Email.Sent)
	assert.True(t, result.SMS.Sent)
	require.Len(t, email.sent, 1)
	assert.Equal(t, "s.chen@lincolnhigh.edu", email.sent[0].To)
	assert.Equal(t, uint(7), email.sent[0].LeadID)
	require.Len(t, sms.sent, 1)
	assert.Equal(t, "short", sms.sent[0].Message)
}

func TestDeliverSkipsSMSWithoutPhone(t *testing.T) {
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	d := newTestDelivery(email, sms)

	lead := &models.Lead{DirectorEmail: "s.chen@lincolnhigh.edu"}
	result := d.Deliver(context.Background(), lead, RenderedContent{Subject: "s", Body: "b", SMS: "short"}, "follow_up")

	assert.True(t, result.Email.Sent)
	assert.False(t, result.SMS.Attempted)
	assert.Empty(t, sms.sent)
}

func TestDeliverSkipsSMSWithoutContent(t *testing.T) {
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	d := newTestDelivery(email, sms)

	lead := &models.Lead{DirectorEmail: "s.chen@lincolnhigh.edu", DirectorPhone: "+15555550123"}
	result := d.Deliver(context.Background(), lead, RenderedContent{Subject: "s", Body: "b"}, "follow_up")

	assert.True(t, result.Email.Sent)
	assert.False(t, result.SMS.Attempted)
}

func TestDeliverChannelsAreIndependent(t *testing.T) {
	email := &fakeEmailSender{err: errors.New("smtp connection refused")}
	sms := &fakeSMSSender{}
	d := newTestDelivery(email, sms)

	lead := &models.Lead{DirectorEmail: "s.chen@lincolnhigh.edu", DirectorPhone: "+15555550123"}
	result := d.Deliver(context.Background(), lead, RenderedContent{Subject: "s", Body: "b", SMS: "short"}, "follow_up")

	assert.True(t, result.Email.Attempted)
	assert.False(t, result.Email.Sent)
	assert.Contains(t, result.Email.Error, "smtp connection refused")

	assert.True(t, result.SMS.Sent, "sms still goes out when email fails")
	require.Len(t, sms.sent, 1)
}
