package db

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('student', 'admin')),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL,
		schedule TEXT NOT NULL,
		max_participants INTEGER NOT NULL CHECK (max_participants > 0),
		location TEXT,
		duration TEXT,
		organizer_id INTEGER REFERENCES users(id),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS registrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		activity_id INTEGER NOT NULL REFERENCES activities(id),
		registration_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		status TEXT NOT NULL DEFAULT 'registered' CHECK (status IN ('registered', 'waitlisted', 'cancelled'))
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_registrations_active_pair
		ON registrations(user_id, activity_id) WHERE status = 'registered';
	CREATE INDEX IF NOT EXISTS idx_registrations_activity_status
		ON registrations(activity_id, status);
`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'student' CHECK (role IN ('student', 'admin')),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS activities (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		description TEXT NOT NULL,
		schedule VARCHAR(255) NOT NULL,
		max_participants INTEGER NOT NULL CHECK (max_participants > 0),
		location VARCHAR(255),
		duration VARCHAR(255),
		organizer_id BIGINT REFERENCES users(id),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS registrations (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		activity_id BIGINT NOT NULL REFERENCES activities(id),
		registration_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		status VARCHAR(20) NOT NULL DEFAULT 'registered' CHECK (status IN ('registered', 'waitlisted', 'cancelled'))
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_registrations_active_pair
		ON registrations(user_id, activity_id) WHERE status = 'registered';
	CREATE INDEX IF NOT EXISTS idx_registrations_activity_status
		ON registrations(activity_id, status);
`
