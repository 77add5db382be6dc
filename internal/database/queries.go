package database

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultMessageLimit = 50

	createMemberQuery = "INSERT INTO conversation_members (conversation_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)"
)

func (db *PgRepository) CreateAccount(params CreateAccountParams) (User, error) {
	now := time.Now().UTC()
	res := db.conn.QueryRow(
		"INSERT INTO users (id, username, email, name, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id, username, email, name, created_at, updated_at",
		params.Id,
		params.Username,
		params.Email,
		params.Name,
		params.PasswordHash,
		now,
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.Email,
		&u.Name,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE users SET username = $2, password_hash = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, username, email, name, created_at, updated_at",
		params.UserId,
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.Email,
		&u.Name,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgRepository) GetAccountById(id string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, name, image, created_at, updated_at FROM users "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.Email,
		&user.Name,
		&user.Image,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, name, image, password_hash, created_at, updated_at FROM users "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.Email,
		&user.Name,
		&user.Image,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgRepository) ListOtherUsers(userId string, filter UserFilter) ([]User, error) {
	var query string
	switch filter {
	case FilterNoDirectConversation:
		query = "SELECT u.id, u.username, u.email, u.name, u.image, u.created_at, u.updated_at FROM users u " +
			"WHERE u.id <> $1 AND NOT EXISTS (" +
			"SELECT 1 FROM conversation_members m1 " +
			"JOIN conversation_members m2 ON m1.conversation_id = m2.conversation_id " +
			"JOIN conversations c ON c.id = m1.conversation_id AND c.is_group = FALSE " +
			"WHERE m1.user_id = $1 AND m2.user_id = u.id) " +
			"ORDER BY u.username"
	case FilterAllOthers:
		query = "SELECT u.id, u.username, u.email, u.name, u.image, u.created_at, u.updated_at FROM users u " +
			"WHERE u.id <> $1 ORDER BY u.username"
	default:
		return nil, fmt.Errorf("unknown user filter %q", filter)
	}

	rows, err := db.conn.Query(query, userId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Id, &u.Username, &u.Email, &u.Name, &u.Image, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (db *PgRepository) CreateGroupConversation(params CreateGroupParams) (Conversation, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res := tx.QueryRow(
		"INSERT INTO conversations (id, name, is_group, created_at, updated_at) "+
			"VALUES ($1, $2, TRUE, $3, $3) RETURNING id, name, is_group, created_at, updated_at",
		params.Id,
		params.Name,
		now,
	)

	var conv Conversation
	err = res.Scan(&conv.Id, &conv.Name, &conv.IsGroup, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return Conversation{}, err
	}

	// creator is admin, everyone else a member
	if _, err = tx.Exec(createMemberQuery, conv.Id, params.CreatorId, "admin", now); err != nil {
		return Conversation{}, err
	}
	for _, memberId := range params.MemberIds {
		if memberId == params.CreatorId {
			continue
		}
		if _, err = tx.Exec(createMemberQuery, conv.Id, memberId, "member", now); err != nil {
			return Conversation{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return Conversation{}, err
	}

	return db.GetConversationById(conv.Id)
}

func (db *PgRepository) CreateDirectConversation(params CreateDirectMessageParams) (Conversation, Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Conversation{}, Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res := tx.QueryRow(
		"INSERT INTO conversations (id, is_group, created_at, updated_at) "+
			"VALUES ($1, FALSE, $2, $2) RETURNING id, is_group, created_at, updated_at",
		params.ConversationId,
		now,
	)

	var conv Conversation
	err = res.Scan(&conv.Id, &conv.IsGroup, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return Conversation{}, Message{}, err
	}

	if _, err = tx.Exec(createMemberQuery, conv.Id, params.SenderId, "member", now); err != nil {
		return Conversation{}, Message{}, err
	}
	if _, err = tx.Exec(createMemberQuery, conv.Id, params.RecipientId, "member", now); err != nil {
		return Conversation{}, Message{}, err
	}

	msgRow := tx.QueryRow(
		"INSERT INTO messages (id, conversation_id, sender_id, content, message_type, is_deleted, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, 'text', FALSE, $5, $5) "+
			"RETURNING id, conversation_id, sender_id, content, message_type, is_deleted, created_at, updated_at",
		params.MessageId,
		conv.Id,
		params.SenderId,
		params.Content,
		now,
	)

	var msg Message
	err = msgRow.Scan(&msg.Id, &msg.ConversationId, &msg.SenderId, &msg.Content, &msg.MessageType, &msg.IsDeleted, &msg.CreatedAt, &msg.UpdatedAt)
	if err != nil {
		return Conversation{}, Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return Conversation{}, Message{}, err
	}

	return conv, msg, nil
}

func (db *PgRepository) GetConversationById(id string) (Conversation, error) {
	convs, err := db.queryConversations(
		"SELECT c.id, COALESCE(c.name, ''), c.is_group, c.created_at, c.updated_at, "+
			"m.user_id, m.role, m.joined_at, u.username, COALESCE(u.name, ''), COALESCE(u.image, '') "+
			"FROM conversations c "+
			"LEFT JOIN conversation_members m ON m.conversation_id = c.id "+
			"LEFT JOIN users u ON u.id = m.user_id "+
			"WHERE c.id = $1",
		id,
	)
	if err != nil {
		return Conversation{}, err
	}
	if len(convs) == 0 {
		return Conversation{}, fmt.Errorf("conversation %q not found", id)
	}

	return convs[0], nil
}

func (db *PgRepository) ListConversations(userId string) ([]Conversation, error) {
	return db.queryConversations(
		"SELECT c.id, COALESCE(c.name, ''), c.is_group, c.created_at, c.updated_at, "+
			"m.user_id, m.role, m.joined_at, u.username, COALESCE(u.name, ''), COALESCE(u.image, '') "+
			"FROM conversations c "+
			"JOIN conversation_members mine ON mine.conversation_id = c.id AND mine.user_id = $1 "+
			"LEFT JOIN conversation_members m ON m.conversation_id = c.id "+
			"LEFT JOIN users u ON u.id = m.user_id "+
			"ORDER BY c.updated_at DESC, c.id",
		userId,
	)
}

// queryConversations runs a conversation/member join and folds the rows into
// one Conversation per id, preserving row order.
func (db *PgRepository) queryConversations(query string, args ...any) ([]Conversation, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		convs   []Conversation
		indexes = make(map[string]int)
	)
	for rows.Next() {
		var (
			conv     Conversation
			memberId sql.NullString
			role     sql.NullString
			joinedAt sql.NullTime
			username sql.NullString
			name     sql.NullString
			image    sql.NullString
		)

		err := rows.Scan(
			&conv.Id,
			&conv.Name,
			&conv.IsGroup,
			&conv.CreatedAt,
			&conv.UpdatedAt,
			&memberId,
			&role,
			&joinedAt,
			&username,
			&name,
			&image,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		idx, ok := indexes[conv.Id]
		if !ok {
			conv.Members = make([]ConversationMember, 0, 2)
			convs = append(convs, conv)
			idx = len(convs) - 1
			indexes[conv.Id] = idx
		}

		if memberId.Valid {
			convs[idx].Members = append(convs[idx].Members, ConversationMember{
				ConversationId: conv.Id,
				UserId:         memberId.String,
				Role:           role.String,
				JoinedAt:       joinedAt.Time,
				User: User{
					Id:       memberId.String,
					Username: username.String,
					Name:     name.String,
					Image:    image.String,
				},
			})
		}
	}

	return convs, rows.Err()
}

func (db *PgRepository) MemberExists(conversationId, userId string) bool {
	res := db.conn.QueryRow(
		"SELECT 1 FROM conversation_members WHERE conversation_id = $1 AND user_id = $2 LIMIT 1",
		conversationId,
		userId,
	)

	var one int
	return res.Scan(&one) == nil
}

func (db *PgRepository) CreateMessage(msg Message) (Message, error) {
	if msg.MessageType == "" {
		msg.MessageType = "text"
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO messages (id, conversation_id, sender_id, content, message_type, is_deleted, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, FALSE, $6, $6) "+
			"RETURNING id, conversation_id, sender_id, content, message_type, is_deleted, created_at, updated_at",
		msg.Id,
		msg.ConversationId,
		msg.SenderId,
		msg.Content,
		msg.MessageType,
		msg.CreatedAt,
	)

	var created Message
	err = res.Scan(&created.Id, &created.ConversationId, &created.SenderId, &created.Content, &created.MessageType, &created.IsDeleted, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return Message{}, err
	}

	// bump the conversation so it sorts to the top of the chat list
	_, err = tx.Exec("UPDATE conversations SET updated_at = $1 WHERE id = $2", created.CreatedAt, created.ConversationId)
	if err != nil {
		return Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return Message{}, err
	}

	return created, nil
}

// GetMessages returns up to limit messages in conversationId strictly older
// than before (all messages if before is the zero time), newest first.
func (db *PgRepository) GetMessages(conversationId string, before time.Time, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = defaultMessageLimit
	}

	query := "SELECT id, conversation_id, sender_id, content, message_type, is_deleted, created_at, updated_at " +
		"FROM messages WHERE conversation_id = $1"
	args := []any{conversationId}
	if !before.IsZero() {
		query += " AND created_at < $2"
		args = append(args, before)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.Id, &msg.ConversationId, &msg.SenderId, &msg.Content, &msg.MessageType, &msg.IsDeleted, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
