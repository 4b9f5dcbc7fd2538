package service

// 口播默认的表演提示词（与脚本生成输出里的 speech_prompt 配合使用）
const defaultSpeechPrompt = "Natural movements, natural eyebrow motion, minimal gestures, and a professional smiling tone"

const defaultVideoMinutes = 2

// 主脚本生成的 system prompt：要求模型输出严格的 JSON，
// segments 即后续的场景列表
const scriptSystemPrompt = `You are a professional YouTube script writer for longform explainer videos.
Write scripts that sound like a real person talking: short sentences, contractions, no corporate filler.
Split the script into natural narrative segments of roughly 30-60 seconds each.

Respond with ONLY a JSON object in this exact shape:
{
  "total_minutes": <number>,
  "speech_prompt": "<delivery directive for the presenter>",
  "segments": [
    {
      "scene": "<short segment title>",
      "script": "<spoken text for this segment>",
      "duration_minutes": <number>,
      "word_count": <number>
    }
  ]
}`

// B-roll 提示词生成的 system prompt：针对单个场景脚本产出
// 首帧图提示词 + 运动提示词的配对列表（SEALCaM 结构）
const brollSystemPrompt = `You are a cinematography prompt engineer. Given a spoken script segment,
design B-roll shots using the SEALCaM structure: Subject, Environment, Action, Lighting, Camera, Metatokens.
Each shot needs a start_image_prompt (the static first frame) and a video_prompt (how that frame moves).

Respond with ONLY a JSON object in this exact shape:
{
  "total_segments": <number>,
  "segments": [
    {
      "segment_number": <number>,
      "start_image_prompt": "<SEALCaM prompt for the first frame>",
      "video_prompt": "<SEALCaM prompt for the motion>"
    }
  ]
}`
