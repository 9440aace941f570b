package db

// SchemaSQL defines every table. Statements are idempotent.
const SchemaSQL = `
    -- ==========================================================================
    -- CALL TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS call SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS company_id ON call TYPE string;
    DEFINE FIELD IF NOT EXISTS user_id ON call TYPE string;
    DEFINE FIELD IF NOT EXISTS phone_number ON call TYPE string;
    DEFINE FIELD IF NOT EXISTS direction ON call TYPE string DEFAULT "outbound";
    DEFINE FIELD IF NOT EXISTS status ON call TYPE string DEFAULT "initiated";
    DEFINE FIELD IF NOT EXISTS provider_sid ON call TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS transcript ON call TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS segments ON call TYPE array<object> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS segments[*].speaker ON call TYPE string;
    DEFINE FIELD IF NOT EXISTS segments[*].text ON call TYPE string;
    DEFINE FIELD IF NOT EXISTS segments[*].timestamp ON call TYPE datetime;
    DEFINE FIELD IF NOT EXISTS sentiment ON call TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS sentiment_score ON call TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS summary ON call TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS recording_url ON call TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS duration_sec ON call TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS started_at ON call TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS ended_at ON call TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS last_activity ON call TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS created ON call TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS call_company ON call FIELDS company_id;
    DEFINE INDEX IF NOT EXISTS call_status ON call FIELDS status;
    DEFINE INDEX IF NOT EXISTS call_provider_sid ON call FIELDS provider_sid;

    -- ==========================================================================
    -- CHAT TABLE (WhatsApp conversations)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS chat SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS company_id ON chat TYPE string;
    DEFINE FIELD IF NOT EXISTS user_id ON chat TYPE string;
    DEFINE FIELD IF NOT EXISTS phone ON chat TYPE string;
    DEFINE FIELD IF NOT EXISTS contact_name ON chat TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS active ON chat TYPE bool DEFAULT true;
    DEFINE FIELD IF NOT EXISTS unread_count ON chat TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS last_message_at ON chat TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS last_message_preview ON chat TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created ON chat TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chat_company_phone ON chat FIELDS company_id, phone;
    DEFINE INDEX IF NOT EXISTS chat_phone ON chat FIELDS phone;

    -- ==========================================================================
    -- MESSAGE TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS message SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS chat_id ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS direction ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS type ON message TYPE string DEFAULT "text";
    DEFINE FIELD IF NOT EXISTS content ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS media_url ON message TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS external_id ON message TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS status ON message TYPE string DEFAULT "sent";
    DEFINE FIELD IF NOT EXISTS created ON message TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS message_chat ON message FIELDS chat_id, created;
    DEFINE INDEX IF NOT EXISTS message_external ON message FIELDS external_id;

    -- ==========================================================================
    -- SUGGESTION TABLE (generated suggestions, history and analytics)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS suggestion SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON suggestion TYPE string;
    DEFINE FIELD IF NOT EXISTS call_id ON suggestion TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS chat_id ON suggestion TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS category ON suggestion TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON suggestion TYPE string;
    DEFINE FIELD IF NOT EXISTS confidence ON suggestion TYPE float;
    DEFINE FIELD IF NOT EXISTS trigger_text ON suggestion TYPE string;
    DEFINE FIELD IF NOT EXISTS channel ON suggestion TYPE string;
    DEFINE FIELD IF NOT EXISTS model ON suggestion TYPE string;
    DEFINE FIELD IF NOT EXISTS latency_ms ON suggestion TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS used ON suggestion TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS created ON suggestion TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS suggestion_call ON suggestion FIELDS call_id;
    DEFINE INDEX IF NOT EXISTS suggestion_chat ON suggestion FIELDS chat_id;

    -- ==========================================================================
    -- NOTIFICATION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS notification SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON notification TYPE string;
    DEFINE FIELD IF NOT EXISTS company_id ON notification TYPE string;
    DEFINE FIELD IF NOT EXISTS type ON notification TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON notification TYPE string;
    DEFINE FIELD IF NOT EXISTS message ON notification TYPE string;
    DEFINE FIELD IF NOT EXISTS data ON notification TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS read ON notification TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS read_at ON notification TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS created ON notification TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS notification_user ON notification FIELDS user_id, read;
`
