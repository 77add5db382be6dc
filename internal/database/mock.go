package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountById(id string) (User, error) {
	args := m.Called(id)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) ListOtherUsers(userId string, filter UserFilter) ([]User, error) {
	args := m.Called(userId, filter)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockRepository) CreateGroupConversation(params CreateGroupParams) (Conversation, error) {
	args := m.Called(params)
	return args.Get(0).(Conversation), args.Error(1)
}
func (m *MockRepository) CreateDirectConversation(params CreateDirectMessageParams) (Conversation, Message, error) {
	args := m.Called(params)
	return args.Get(0).(Conversation), args.Get(1).(Message), args.Error(2)
}
func (m *MockRepository) GetConversationById(id string) (Conversation, error) {
	args := m.Called(id)
	return args.Get(0).(Conversation), args.Error(1)
}
func (m *MockRepository) ListConversations(userId string) ([]Conversation, error) {
	args := m.Called(userId)
	return args.Get(0).([]Conversation), args.Error(1)
}
func (m *MockRepository) MemberExists(conversationId, userId string) bool {
	args := m.Called(conversationId, userId)
	return args.Bool(0)
}
func (m *MockRepository) CreateMessage(msg Message) (Message, error) {
	args := m.Called(msg)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockRepository) GetMessages(conversationId string, before time.Time, limit int) ([]Message, error) {
	args := m.Called(conversationId, before, limit)
	return args.Get(0).([]Message), args.Error(1)
}
