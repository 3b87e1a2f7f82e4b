package dialogue

import "fmt"

const systemPrompt = "You are a professional spoken-English tutor. You write practical, natural dialogues for Chinese learners and explain their key vocabulary."

func dialoguePrompt(topic string, exchanges int) string {
	return fmt.Sprintf(`Write an English conversation about "%s" with %d exchanges.

Requirements:
1. The conversation is between two speakers, A and B.
2. Every line gives the Chinese text and the English text.
3. Keep it practical and natural, suitable for speaking practice.
4. After the conversation, list 5-8 important words or phrases with the English word, its phonetic transcription and the Chinese meaning.

Reply with JSON only, in this shape:
{
    "dialogue": [
        {"speaker": "A", "chinese": "中文内容", "english": "English content"}
    ],
    "keywords": [
        {"word": "english word", "phonetic": "/ˈwɜːd/", "chinese": "中文释义"}
    ]
}`, topic, exchanges)
}

const translatorPrompt = "You are a professional Chinese-English translator who writes idiomatic, natural English."

func translationPrompt(text string) string {
	return fmt.Sprintf(`Translate the following Chinese into natural spoken English.

Chinese: %s

Provide a standard translation for formal settings, a colloquial one for everyday talk, and two or three alternatives if they exist.

Reply with JSON only:
{
    "standard": "Standard English translation",
    "colloquial": "Colloquial English translation",
    "alternatives": ["Alternative 1", "Alternative 2"]
}`, text)
}
