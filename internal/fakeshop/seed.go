// ABOUTME: Demo data for the fake shop: one operator, a few customers, conversations, and orders
// ABOUTME: Used by cmd/fake-shop and by end-to-end tests that need a populated backend

package fakeshop

import (
	"fmt"
	"time"

	"github.com/2389/petshop-support/internal/chat"
)

// Demo credentials created by Seed.
const (
	DemoOperatorID       = "op-1"
	DemoOperatorEmail    = "ops@petshop.test"
	DemoOperatorPhone    = "0900000001"
	DemoOperatorPassword = "petshop"
)

// Seed fills s with demo data. historySize messages are written to the
// first conversation so pagination has something to page through.
func Seed(s *Shop, historySize int) error {
	users := []struct {
		user     chat.User
		password string
	}{
		{chat.User{ID: DemoOperatorID, Name: "Olivia (Support)", Email: DemoOperatorEmail, Phone: DemoOperatorPhone, Role: "admin"}, DemoOperatorPassword},
		{chat.User{ID: "cust-1", Name: "Ann Baker", Email: "ann@example.test", Role: "customer"}, "ann"},
		{chat.User{ID: "cust-2", Name: "Ben Ortiz", Phone: "0911222333", Role: "customer"}, "ben"},
		{chat.User{ID: "cust-3", Name: "Chi Nguyen", Email: "chi@example.test", Role: "customer"}, "chi"},
	}
	for _, u := range users {
		if _, err := s.AddUser(u.user, u.password); err != nil {
			return fmt.Errorf("seeding user %s: %w", u.user.ID, err)
		}
	}

	order := s.AddOrder(chat.Order{
		ID:       "ord-1001",
		Status:   "shipped",
		Total:    42.5,
		Customer: "cust-1",
		Items: []chat.OrderItem{
			{ProductID: "p-kibble", Name: "Salmon kibble 2kg", Quantity: 1, Price: 30},
			{ProductID: "p-toy", Name: "Rope toy", Quantity: 2, Price: 6.25},
		},
		CreatedAt: time.Now().Add(-72 * time.Hour).UTC(),
	})

	if _, err := s.OpenConversation("conv-ann", "cust-1", DemoOperatorID); err != nil {
		return err
	}
	for i := 1; i <= historySize; i++ {
		sender := "cust-1"
		if i%3 == 0 {
			sender = DemoOperatorID
		}
		if _, err := s.PostMessage("conv-ann", sender, fmt.Sprintf("History message %d", i), nil); err != nil {
			return err
		}
	}
	if _, err := s.PostOrderMessage("conv-ann", "cust-1", "Where is my order?", order.ID); err != nil {
		return err
	}

	if _, err := s.OpenConversation("conv-ben", "cust-2", DemoOperatorID); err != nil {
		return err
	}
	if _, err := s.PostMessage("conv-ben", "cust-2", "Do you have parrot food?", []string{"https://cdn.petshop.test/parrot.jpg"}); err != nil {
		return err
	}
	if _, err := s.PostMessage("conv-ben", DemoOperatorID, "Yes, in aisle 4.", nil); err != nil {
		return err
	}

	// A conversation nobody has written in yet; the console hides it.
	if _, err := s.OpenConversation("conv-chi", "cust-3", DemoOperatorID); err != nil {
		return err
	}
	return nil
}
