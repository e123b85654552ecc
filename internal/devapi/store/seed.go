package store

import (
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
)

// Seed fills the store with a master account and a small working set.
func (s *Store) Seed(login, password string) (User, error) {
	u, err := s.AddUser(login, password, "Ivan Petrov", models.RoleMaster)
	if err != nil {
		return User{}, err
	}
	if _, err := s.AddUser("dispatcher", password, "Olga Smirnova", "dispatcher"); err != nil {
		return User{}, err
	}

	now := s.nowFunc().UTC()
	tomorrow := now.Add(24 * time.Hour).Truncate(time.Hour)

	s.PutOrder(models.Order{
		ID:          "42",
		Number:      "SO-0042",
		Status:      models.OrderStatusAssigned,
		Title:       "Washing machine does not drain",
		Description: "Error E21, water stays in the drum.",
		Address:     "12 Garden St, apt 5",
		ClientName:  "Maria Ivanova",
		ClientPhone: "+1 555 0142",
		ScheduledAt: &tomorrow,
		Fields:      map[string]any{"model": "WM-7000"},
	})
	s.PutOrder(models.Order{
		ID:          "43",
		Number:      "SO-0043",
		Status:      models.OrderStatusNew,
		Title:       "Fridge is noisy",
		Address:     "7 Lake Ave",
		ClientName:  "Pavel Orlov",
		ClientPhone: "+1 555 0143",
	})
	s.PutOrder(models.Order{
		ID:          "44",
		Number:      "SO-0044",
		Status:      models.OrderStatusWaitingParts,
		Title:       "Dishwasher pump replacement",
		Description: "Pump ordered, ETA three days.",
		Address:     "3 Hill Rd",
		ClientName:  "Anna Kim",
	})

	s.PutNotification(models.Notification{
		ID:        "n-1",
		Title:     "New order assigned",
		Body:      "SO-0042 was assigned to you.",
		OrderID:   "42",
		CreatedAt: now.Add(-time.Hour),
	})
	s.PutNotification(models.Notification{
		ID:        "n-2",
		Title:     "Shift reminder",
		Body:      "Tomorrow starts at 09:00.",
		CreatedAt: now.Add(-2 * time.Hour),
	})

	return u, nil
}
