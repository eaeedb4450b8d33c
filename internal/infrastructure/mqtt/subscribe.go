package mqtt

import (
	"fmt"
)

// Subscribe registers a handler for messages on the specified topic filter.
// Each message is acknowledged after the handler returns.
//
// Subscriptions are restored automatically after a reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	return c.subscribe(subscription{topic: topic, qos: qos, handler: handler})
}

// SubscribeManual registers a handler that acknowledges messages itself.
// Use it when processing continues after the handler returns and the
// message must stay in flight until that processing is done.
//
// Example:
//
//	err := client.SubscribeManual("tlm", 1,
//	    func(topic string, payload []byte, ack func()) {
//	        queue <- Message{Topic: topic, Payload: payload, Ack: ack}
//	    })
func (c *Client) SubscribeManual(topic string, qos byte, handler AckHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	return c.subscribe(subscription{topic: topic, qos: qos, manual: handler})
}

func (c *Client) subscribe(sub subscription) error {
	if err := ValidateFilter(sub.topic); err != nil {
		return err
	}
	if sub.qos > maxQoS {
		return ErrInvalidQoS
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subscriptions[sub.topic] = sub
	c.subMu.Unlock()

	token := c.client.Subscribe(sub.topic, sub.qos, sub.callback(c))
	if !token.WaitTimeout(defaultPublishTimeout) {
		c.forget(sub.topic)
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		c.forget(sub.topic)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return nil
}

func (c *Client) forget(topic string) {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()
}

// Unsubscribe removes a subscription. Messages already in flight may still
// be delivered.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.forget(topic)

	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}

// SubscriptionCount returns the number of active subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription checks if a subscription exists for the exact filter string.
func (c *Client) HasSubscription(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, exists := c.subscriptions[topic]
	return exists
}
