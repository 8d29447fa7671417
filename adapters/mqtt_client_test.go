package adapters

import (
	"antplus-to-mqtt/application"
	"context"
	"fmt"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestMQTTClient(mClient *MockMQTTClient, params MQTTClientParams) *MQTTClient {
	params.ClientID = "test"
	params.Username = "admin"
	params.Password = "password"
	params.MQTTUrl = "tcp://localhost:1883"
	// for testing
	params.NewClientFunc = func(options *mqtt.ClientOptions) mqtt.Client {
		return mClient
	}
	return NewMQTTClient(params)
}

func connectTestMQTTClient(t *testing.T, mClient *MockMQTTClient, mqttClient *MQTTClient) {
	mToken := &MockToken{}

	mClient.On("Connect").Run(func(args mock.Arguments) {
		mqttClient.OnConnect(mClient)
	}).Return(mToken).Once()
	mToken.On("Error").Return(nil).Once()

	err := mqttClient.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, true, mqttClient.IsConnected())
}

func TestMQTTClient_Options(t *testing.T) {
	var captured *mqtt.ClientOptions

	NewMQTTClient(MQTTClientParams{
		ClientID: "antplus-bridge",
		Username: "admin",
		Password: "password",
		MQTTUrl:  "tcp://broker:1883",
		NewClientFunc: func(options *mqtt.ClientOptions) mqtt.Client {
			captured = options
			return &MockMQTTClient{}
		},
	})

	require.NotNil(t, captured)
	require.Len(t, captured.Servers, 1)
	assert.Equal(t, "tcp://broker:1883", captured.Servers[0].String())
	assert.Equal(t, "antplus-bridge", captured.ClientID)
	assert.Equal(t, "admin", captured.Username)
	assert.Equal(t, "password", captured.Password)
	assert.True(t, captured.AutoReconnect)
	assert.True(t, captured.CleanSession)
}

func TestMQTTClient_Connect(t *testing.T) {
	mClient := &MockMQTTClient{}
	mToken := &MockToken{}

	mqttClient := newTestMQTTClient(mClient, MQTTClientParams{})

	mClient.On("Connect").Return(mToken).Once()
	mToken.On("Error").Return(nil).Once()

	err := mqttClient.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, mqttClient.IsConnected())

	status := mqttClient.Status()
	assert.Equal(t, uint64(0), status.MessageCount)
	assert.Equal(t, time.Unix(0, 0), status.LastTimePublished)
	assert.Equal(t, true, status.Connected)

	err = mqttClient.Connect(context.Background())
	require.NoError(t, err)

	mClient.AssertExpectations(t)
	mToken.AssertExpectations(t)
}

func TestMQTTClient_Connect_Error(t *testing.T) {
	mClient := &MockMQTTClient{}
	mToken := &MockToken{}

	mqttClient := newTestMQTTClient(mClient, MQTTClientParams{})

	mClient.On("Connect").Return(mToken).Once()
	mToken.On("Error").Return(fmt.Errorf("internal")).Twice()

	err := mqttClient.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, false, mqttClient.IsConnected())

	status := mqttClient.Status()
	assert.Equal(t, uint64(0), status.MessageCount)
	assert.Equal(t, time.Unix(0, 0), status.LastTimePublished)
	assert.Equal(t, false, status.Connected)

	mClient.AssertExpectations(t)
	mToken.AssertExpectations(t)
}

func TestMQTTClient_Connect_Timeout(t *testing.T) {
	mClient := &MockMQTTClient{}
	mToken := &MockToken{Block: true}

	mqttClient := newTestMQTTClient(mClient, MQTTClientParams{ConnectTimeout: 10 * time.Millisecond})

	mClient.On("Connect").Return(mToken).Once()

	err := mqttClient.Connect(context.Background())
	require.Equal(t, ErrMQTTConnectTimeout, err)
	assert.Equal(t, false, mqttClient.IsConnected())

	mClient.AssertExpectations(t)
}

func TestMQTTClient_Connect_Cancelled(t *testing.T) {
	mClient := &MockMQTTClient{}
	mToken := &MockToken{Block: true}

	mqttClient := newTestMQTTClient(mClient, MQTTClientParams{})

	ctx, cancel := context.WithCancel(context.Background())
	mClient.On("Connect").Run(func(args mock.Arguments) {
		cancel()
	}).Return(mToken).Once()

	err := mqttClient.Connect(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, false, mqttClient.IsConnected())

	mClient.AssertExpectations(t)
}

func TestMQTTClient_OnConnectionLost(t *testing.T) {
	mClient := &MockMQTTClient{}
	mToken := &MockToken{}

	mqttClient := newTestMQTTClient(mClient, MQTTClientParams{})

	mClient.On("Connect").Return(mToken).Once()
	mToken.On("Error").Return(nil).Once()

	err := mqttClient.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, mqttClient.IsConnected())

	mqttClient.OnConnectionLost(mClient, fmt.Errorf("connection lost"))
	assert.Equal(t, false, mqttClient.IsConnected())

	status := mqttClient.Status()
	assert.Equal(t, uint64(0), status.MessageCount)
	assert.Equal(t, time.Unix(0, 0), status.LastTimePublished)
	assert.Equal(t, false, status.Connected)

	// the library reconnects on its own and reports it back
	mqttClient.OnReconnecting(mClient, nil)
	mqttClient.OnConnect(mClient)
	assert.Equal(t, true, mqttClient.IsConnected())

	mClient.AssertExpectations(t)
	mToken.AssertExpectations(t)
}

func TestMQTTClient_PublishAsync_Error(t *testing.T) {
	mClient := &MockMQTTClient{}
	mToken := &MockToken{}

	mqttClient := newTestMQTTClient(mClient, MQTTClientParams{})
	connectTestMQTTClient(t, mClient, mqttClient)

	topic := "antplus/HR/12/heartRate"
	payload := []byte("150")

	mClient.On("Publish", topic, byte(0), false, payload).Return(mToken).Once()
	mToken.On("Error").Return(fmt.Errorf("internal")).Twice()

	done := make(chan error, 1)
	mqttClient.PublishAsync(topic, payload, application.PublishOptions{}, func(err error) {
		done <- err
	})

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish callback not called")
	}

	status := mqttClient.Status()
	assert.Equal(t, uint64(0), status.MessageCount)
	assert.Equal(t, uint64(1), status.FailedCount)
	assert.Equal(t, true, status.Connected)

	mClient.AssertExpectations(t)
	mToken.AssertExpectations(t)
}

func TestMQTTClient_PublishAsync(t *testing.T) {
	mClient := &MockMQTTClient{}
	mToken := &MockToken{}

	mqttClient := newTestMQTTClient(mClient, MQTTClientParams{})
	connectTestMQTTClient(t, mClient, mqttClient)

	topic := "antplus/PWR/7/manufacturer"
	payload := []byte("Garmin")

	mClient.On("Publish", topic, byte(0), false, payload).Return(mToken).Once()
	mToken.On("Error").Return(nil).Once()

	done := make(chan error, 1)
	mqttClient.PublishAsync(topic, payload, application.PublishOptions{MessageExpiry: 10 * time.Second}, func(err error) {
		done <- err
	})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish callback not called")
	}
	status := mqttClient.Status()
	assert.Equal(t, uint64(1), status.MessageCount)
	assert.True(t, time.Now().After(status.LastTimePublished))

	mClient.AssertExpectations(t)
	mToken.AssertExpectations(t)
}

func TestMQTTClient_PublishAsync_NotConnected(t *testing.T) {
	mClient := &MockMQTTClient{}

	mqttClient := newTestMQTTClient(mClient, MQTTClientParams{})

	var callbackErr error
	mqttClient.PublishAsync("antplus/HR/12/heartRate", []byte("0"), application.PublishOptions{}, func(err error) {
		callbackErr = err
	})
	require.Equal(t, ErrMQTTNotConnected, callbackErr)
	assert.Equal(t, uint64(1), mqttClient.Status().FailedCount)

	mClient.AssertExpectations(t)
}

func TestMQTTClient_PublishAsync_Timeout(t *testing.T) {
	mClient := &MockMQTTClient{}
	mToken := &MockToken{Block: true}

	mqttClient := newTestMQTTClient(mClient, MQTTClientParams{PublishTimeout: 10 * time.Millisecond})
	connectTestMQTTClient(t, mClient, mqttClient)

	mClient.On("Publish", "antplus/HR/12/heartRate", byte(0), false, []byte("150")).Return(mToken).Once()

	done := make(chan error, 1)
	mqttClient.PublishAsync("antplus/HR/12/heartRate", []byte("150"), application.PublishOptions{}, func(err error) {
		done <- err
	})

	select {
	case err := <-done:
		require.Equal(t, ErrMQTTPublishTimeout, err)
	case <-time.After(time.Second):
		t.Fatal("publish callback not called")
	}
	assert.Equal(t, uint64(1), mqttClient.Status().FailedCount)

	mClient.AssertExpectations(t)
}

func TestMQTTClient_Disconnect(t *testing.T) {
	mClient := &MockMQTTClient{}

	mqttClient := newTestMQTTClient(mClient, MQTTClientParams{})
	connectTestMQTTClient(t, mClient, mqttClient)

	mClient.On("Disconnect", uint(250)).Return().Once()

	err := mqttClient.Disconnect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, false, mqttClient.IsConnected())

	mClient.AssertExpectations(t)
}
