package openai

// systemInstruction asks for exactly five labeled concepts as a bare JSON
// array. Models still fence the output on occasion, so the parser strips
// markdown markers defensively.
const systemInstruction = `You are an AI that describes images in simple, plain English. ` +
	`Your task is to identify 5 distinct objects or concepts visible in the image. ` +
	`For each item, provide a descriptive label and a confidence score between 0 and 1. ` +
	`Return ONLY a valid JSON array with this format: [{"label": "object name", "confidence": 0.95}, ...]. ` +
	`No explanations, markdown, or code blocks.`
